package guildsync

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEvent indicates that an event does not satisfy envelope invariants.
	ErrInvalidEvent = errors.New("guildsync: invalid event")
	// ErrInvalidSubscription indicates that a subscription configuration is invalid.
	ErrInvalidSubscription = errors.New("guildsync: invalid subscription")
	// ErrSubscriptionClosed indicates that a subscription is no longer active.
	ErrSubscriptionClosed = errors.New("guildsync: subscription closed")
	// ErrEventDropped indicates a non-blocking backpressure drop.
	ErrEventDropped = errors.New("guildsync: event dropped due to backpressure")
	// ErrNotConnected indicates a disconnect request while the session is idle.
	ErrNotConnected = errors.New("guildsync: session not connected")
	// ErrAlreadyConnected indicates a connect request while a session is live.
	ErrAlreadyConnected = errors.New("guildsync: session already connected")
	// ErrClientClosed indicates use of a client after Close.
	ErrClientClosed = errors.New("guildsync: client closed")
	// ErrUnresolved indicates a parent entity that could not be resolved.
	ErrUnresolved = errors.New("guildsync: entity unresolved")
)

// ResolutionError reports a parent entity the dispatcher could not resolve
// from cache or by a fill fetch.
type ResolutionError struct {
	// Event is the wire event name being dispatched.
	Event string
	// Kind is the kind of the missing entity.
	Kind EntityKind
	// ID is the foreign key that failed to resolve.
	ID string
	// Err is the fill-fetch failure, when a fetch was attempted.
	Err error
}

// Error implements error.
func (e *ResolutionError) Error() string {
	message := fmt.Sprintf("guildsync: resolve %s %s", e.Kind, e.ID)
	if e.Event != "" {
		message += " for " + e.Event
	}
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}

	return message
}

// Unwrap exposes the fetch failure.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Is matches ErrUnresolved.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrUnresolved
}

// AsResolutionError unwraps err into a ResolutionError.
func AsResolutionError(err error) (*ResolutionError, bool) {
	var target *ResolutionError
	if !errors.As(err, &target) {
		return nil, false
	}

	return target, true
}
