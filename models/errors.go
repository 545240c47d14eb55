package models

import "errors"

// Domain error taxonomy. Controllers map these onto HTTP status codes; the
// lifecycle service never swallows one and never partially applies a write
// that produced one.
var (
	// ErrInvalidServiceType is returned when a service type is outside the
	// fixed enumeration.
	ErrInvalidServiceType = errors.New("invalid service type")

	// ErrInvalidLocation is returned when a request location is malformed.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidTransition is returned when a status update is not the
	// canonical successor of the current status (and is not a legal
	// cancellation).
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnauthorized is returned when the actor is neither the owning
	// customer nor the assigned technician (nor an admin, for reads).
	ErrUnauthorized = errors.New("not authorized for this request")

	// ErrAlreadyClaimed is returned when a claim loses the race for a
	// pending request. Expected under contention; callers should refresh
	// their available list.
	ErrAlreadyClaimed = errors.New("request already claimed")

	// ErrRequestNotFound is returned when a request id does not resolve.
	ErrRequestNotFound = errors.New("service request not found")

	// ErrConflict is the store-level optimistic concurrency failure: the
	// record no longer matches the expected {status, technicianID} predicate.
	ErrConflict = errors.New("request state changed concurrently")

	// ErrStoreUnavailable wraps transient store failures. The only error
	// class eligible for caller-side retry; the engine itself never retries.
	ErrStoreUnavailable = errors.New("request store unavailable")
)
