package models

import "time"

// ServiceType identifies the kind of roadside service a customer is asking for.
type ServiceType string

const (
	ServiceAirInflation     ServiceType = "air-inflation"
	ServiceSpareReplacement ServiceType = "spare-replacement"
	ServiceShopPickup       ServiceType = "shop-pickup"
	ServiceLockout          ServiceType = "lockout"
	ServiceJumpstart        ServiceType = "jumpstart"
	ServiceFuelDelivery     ServiceType = "fuel-delivery"
)

// AllServiceTypes lists every valid service type.
var AllServiceTypes = []ServiceType{
	ServiceAirInflation,
	ServiceSpareReplacement,
	ServiceShopPickup,
	ServiceLockout,
	ServiceJumpstart,
	ServiceFuelDelivery,
}

// IsValid reports whether the service type is one of the fixed enumeration.
func (s ServiceType) IsValid() bool {
	for _, t := range AllServiceTypes {
		if s == t {
			return true
		}
	}
	return false
}

// RequestStatus is the lifecycle state of a service request.
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusAssigned   RequestStatus = "assigned"
	StatusEnRoute    RequestStatus = "en-route"
	StatusOnLocation RequestStatus = "on-location"
	StatusInProgress RequestStatus = "in-progress"
	StatusCompleted  RequestStatus = "completed"
	StatusCancelled  RequestStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed out of the status.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsValid reports whether the status is a member of the closed enumeration.
func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusEnRoute, StatusOnLocation,
		StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// NextStatus returns the canonical forward successor of the status.
// Terminal statuses and pending (which advances only via claim) return "".
func (s RequestStatus) NextStatus() RequestStatus {
	switch s {
	case StatusAssigned:
		return StatusEnRoute
	case StatusEnRoute:
		return StatusOnLocation
	case StatusOnLocation:
		return StatusInProgress
	case StatusInProgress:
		return StatusCompleted
	}
	return ""
}

// ActorRole identifies who is acting on a request.
type ActorRole string

const (
	ActorCustomer   ActorRole = "customer"
	ActorTechnician ActorRole = "technician"
	ActorSystem     ActorRole = "system"
)

// Pricing is the computed price breakdown for a request. It is set at
// creation and may be refined once for shop-pickup when a shop is selected;
// it is never recomputed after assignment.
type Pricing struct {
	Base           float64 `json:"base" dynamodbav:"base"`
	Service        float64 `json:"service" dynamodbav:"service"`
	PerUnit        float64 `json:"perUnit,omitempty" dynamodbav:"perUnit,omitempty"`
	MaxUnits       int     `json:"maxUnits,omitempty" dynamodbav:"maxUnits,omitempty"`
	PerMile        float64 `json:"perMile,omitempty" dynamodbav:"perMile,omitempty"`
	EstimatedMiles float64 `json:"estimatedMiles,omitempty" dynamodbav:"estimatedMiles,omitempty"`
	Estimate       float64 `json:"estimate" dynamodbav:"estimate"`
	Currency       string  `json:"currency" dynamodbav:"currency"`
}

// Location is the customer-supplied breakdown location. Immutable after creation.
type Location struct {
	Address   string   `json:"address" dynamodbav:"address" validate:"required"`
	Latitude  *float64 `json:"latitude,omitempty" dynamodbav:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty" dynamodbav:"longitude,omitempty"`
}

// Shop describes the tire shop chosen for a shop-pickup request.
type Shop struct {
	Name          string  `json:"name" dynamodbav:"name" validate:"required"`
	Phone         string  `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
	Address       string  `json:"address,omitempty" dynamodbav:"address,omitempty"`
	Latitude      float64 `json:"latitude,omitempty" dynamodbav:"latitude,omitempty"`
	Longitude     float64 `json:"longitude,omitempty" dynamodbav:"longitude,omitempty"`
	DistanceMiles float64 `json:"distanceMiles,omitempty" dynamodbav:"distanceMiles,omitempty"`
}

// LocationSample is one timestamped coordinate reading from the technician en route.
type LocationSample struct {
	Latitude  float64   `json:"latitude" dynamodbav:"latitude"`
	Longitude float64   `json:"longitude" dynamodbav:"longitude"`
	Timestamp time.Time `json:"timestamp" dynamodbav:"timestamp"`
}

// Tracking holds the progress-tracking state of a request.
type Tracking struct {
	StartedAt          *time.Time       `json:"startedAt,omitempty" dynamodbav:"startedAt,omitempty"`
	ArrivedAt          *time.Time       `json:"arrivedAt,omitempty" dynamodbav:"arrivedAt,omitempty"`
	CompletedAt        *time.Time       `json:"completedAt,omitempty" dynamodbav:"completedAt,omitempty"`
	JobStartTime       *time.Time       `json:"jobStartTime,omitempty" dynamodbav:"jobStartTime,omitempty"`
	JobEndTime         *time.Time       `json:"jobEndTime,omitempty" dynamodbav:"jobEndTime,omitempty"`
	JobDurationMinutes int              `json:"jobDurationMinutes,omitempty" dynamodbav:"jobDurationMinutes,omitempty"`
	TotalDistanceMiles float64          `json:"totalDistanceMiles" dynamodbav:"totalDistanceMiles"`
	TotalTimeMinutes   int              `json:"totalTimeMinutes" dynamodbav:"totalTimeMinutes"`
	IsTracking         bool             `json:"isTracking" dynamodbav:"isTracking"`
	LocationHistory    []LocationSample `json:"locationHistory" dynamodbav:"locationHistory"`
}

// Confirmations are the independent arrival/completion booleans. Each is
// settable once by its owning party; completion of the request requires both
// completion confirmations.
type Confirmations struct {
	TechnicianConfirmedArrival    bool `json:"technicianConfirmedArrival" dynamodbav:"technicianConfirmedArrival"`
	CustomerConfirmedArrival      bool `json:"customerConfirmedArrival" dynamodbav:"customerConfirmedArrival"`
	TechnicianConfirmedCompletion bool `json:"technicianConfirmedCompletion" dynamodbav:"technicianConfirmedCompletion"`
	CustomerConfirmedCompletion   bool `json:"customerConfirmedCompletion" dynamodbav:"customerConfirmedCompletion"`
}

// ChatMessage is one entry in a request's chat log.
type ChatMessage struct {
	MessageID  string    `json:"messageID" dynamodbav:"messageID"`
	SenderID   string    `json:"senderID" dynamodbav:"senderID"`
	SenderType ActorRole `json:"senderType" dynamodbav:"senderType"`
	Message    string    `json:"message" dynamodbav:"message"`
	Timestamp  time.Time `json:"timestamp" dynamodbav:"timestamp"`
	Read       bool      `json:"read" dynamodbav:"read"`
}

// Cancellation records who closed the request and why. Set exactly once, on
// the transition into cancelled.
type Cancellation struct {
	CancelledBy ActorRole `json:"cancelledBy" dynamodbav:"cancelledBy"`
	Reason      string    `json:"reason" dynamodbav:"reason"`
	Timestamp   time.Time `json:"timestamp" dynamodbav:"timestamp"`
}

// Review is a post-completion rating left by one party about the other.
type Review struct {
	Rating  int    `json:"rating" dynamodbav:"rating"`
	Comment string `json:"comment,omitempty" dynamodbav:"comment,omitempty"`
}

// Reviews holds both parties' reviews for a request.
type Reviews struct {
	CustomerReview   *Review `json:"customerReview,omitempty" dynamodbav:"customerReview,omitempty"`
	TechnicianReview *Review `json:"technicianReview,omitempty" dynamodbav:"technicianReview,omitempty"`
}

// ServiceRequest is the central entity of the marketplace. TechnicianID is
// empty while the request is pending; it is set exactly once per claim
// episode by the atomic claim update.
type ServiceRequest struct {
	RequestID     string        `json:"requestID" dynamodbav:"requestID"`
	CustomerID    string        `json:"customerID" dynamodbav:"customerID"`
	TechnicianID  string        `json:"technicianID" dynamodbav:"technicianID,omitempty"`
	ServiceType   ServiceType   `json:"serviceType" dynamodbav:"serviceType"`
	Status        RequestStatus `json:"status" dynamodbav:"status"`
	Description   string        `json:"description" dynamodbav:"description"`
	Pricing       Pricing       `json:"pricing" dynamodbav:"pricing"`
	Location      Location      `json:"location" dynamodbav:"location"`
	SelectedShop  *Shop         `json:"selectedShop,omitempty" dynamodbav:"selectedShop,omitempty"`
	Tracking      Tracking      `json:"tracking" dynamodbav:"tracking"`
	Confirmations Confirmations `json:"confirmations" dynamodbav:"confirmations"`
	Chat          []ChatMessage `json:"chat" dynamodbav:"chat"`
	Cancellation  *Cancellation `json:"cancellation,omitempty" dynamodbav:"cancellation,omitempty"`
	Reviews       Reviews       `json:"reviews" dynamodbav:"reviews"`
	CreatedAt     time.Time     `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt" dynamodbav:"updatedAt"`
}

// PricingOptions are the caller-supplied inputs to the pricing computation.
type PricingOptions struct {
	// Extras is the number of jumpstart attempts beyond the first.
	Extras int `json:"extras,omitempty" validate:"omitempty,min=0,max=10"`
	// Units is the number of fuel gallons requested.
	Units int `json:"units,omitempty" validate:"omitempty,min=0,max=10"`
	// EstimatedMiles, when supplied for shop-pickup, overrides any derived distance.
	EstimatedMiles *float64 `json:"estimatedMiles,omitempty" validate:"omitempty,min=0"`
}

// CreateRequestInput is the request body for creating a service request.
type CreateRequestInput struct {
	ServiceType ServiceType    `json:"serviceType" validate:"required"`
	Location    Location       `json:"location" validate:"required"`
	Description string         `json:"description" validate:"required,max=1000"`
	Options     PricingOptions `json:"options"`
	Shop        *Shop          `json:"selectedShop,omitempty"`
}

// UpdateStatusInput is the request body for a status transition.
type UpdateStatusInput struct {
	Status RequestStatus `json:"status" validate:"required"`
	Reason string        `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// SendMessageInput is the request body for posting a chat message.
type SendMessageInput struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// LocationSampleInput is the request body for a tracking ping.
type LocationSampleInput struct {
	Latitude  float64    `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64    `json:"longitude" validate:"min=-180,max=180"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// SelectShopInput is the request body for attaching a tire shop to a
// shop-pickup request.
type SelectShopInput struct {
	Shop           Shop     `json:"shop" validate:"required"`
	EstimatedMiles *float64 `json:"estimatedMiles,omitempty" validate:"omitempty,min=0"`
}

// SubmitReviewInput is the request body for a post-completion review.
type SubmitReviewInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty" validate:"omitempty,max=1000"`
}
