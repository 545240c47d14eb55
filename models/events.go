package models

// EventType names a lifecycle event delivered over the notifier.
type EventType string

const (
	EventRequestAssigned  EventType = "request-assigned"
	EventStatusChanged    EventType = "status-changed"
	EventRequestCancelled EventType = "request-cancelled"
	EventRequestReopened  EventType = "request-reopened"
	EventChatMessage      EventType = "chat-message"
)

// Event is the envelope sent to interested parties when a request changes.
// Delivery is fire-and-forget: a failed delivery never fails the state
// transition that produced the event.
type Event struct {
	Type EventType   `json:"event"`
	Data interface{} `json:"data"`
}

// RequestAssignedEvent is emitted when a technician wins the claim race.
type RequestAssignedEvent struct {
	RequestID    string `json:"requestID"`
	TechnicianID string `json:"technicianID"`
	CustomerID   string `json:"customerID"`
}

// StatusChangedEvent is emitted on every status transition.
type StatusChangedEvent struct {
	RequestID string        `json:"requestID"`
	NewStatus RequestStatus `json:"newStatus"`
}

// RequestCancelledEvent is emitted when a request enters cancelled, or when a
// technician backs out and the request reopens.
type RequestCancelledEvent struct {
	RequestID   string    `json:"requestID"`
	CancelledBy ActorRole `json:"cancelledBy"`
	Reason      string    `json:"reason"`
}

// ChatMessagePostedEvent is emitted when a chat message is appended.
type ChatMessagePostedEvent struct {
	RequestID string      `json:"requestID"`
	Message   ChatMessage `json:"message"`
}
