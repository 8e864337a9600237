package guildsync

import (
	"context"
	"time"
)

// BackpressurePolicy selects what a subscription does with an event that
// arrives while its queue is full.
type BackpressurePolicy string

const (
	// BackpressureBlock holds the publisher, and with it the gateway consumer,
	// until the subscriber frees a slot. No event is lost.
	BackpressureBlock BackpressurePolicy = "block"
	// BackpressureDropNewest discards the arriving event.
	BackpressureDropNewest BackpressurePolicy = "drop_newest"
	// BackpressureDropOldest discards the longest queued event to make room.
	BackpressureDropOldest BackpressurePolicy = "drop_oldest"
)

// Valid reports whether p names a known policy.
func (p BackpressurePolicy) Valid() bool {
	switch p {
	case BackpressureBlock, BackpressureDropNewest, BackpressureDropOldest:
		return true
	default:
		return false
	}
}

// EventHandler receives one normalized event. A returned error is reported
// through the async error hook and does not stop the subscription.
type EventHandler func(ctx context.Context, event *Event) error

// EventSink is where the dispatcher hands off normalized events.
type EventSink interface {
	Publish(ctx context.Context, event *Event) error
}

// SubscriptionSpec describes one subscriber. Zero fields take the bus
// defaults; an empty Filter matches every event.
//
// With more than one worker, events of a subscription may be handled out of
// gateway order.
type SubscriptionSpec struct {
	Name           string
	Filter         InterestSet
	Buffer         int
	Workers        int
	HandlerTimeout time.Duration
	Backpressure   BackpressurePolicy
}

// Subscription is a live registration returned by EventBus.Subscribe.
type Subscription interface {
	Name() string
	// Close stops intake and waits for queued events to be handled, or for
	// ctx to expire.
	Close(ctx context.Context) error
}

// EventBus fans normalized events out to subscribers.
type EventBus interface {
	EventSink
	Subscribe(ctx context.Context, spec SubscriptionSpec, handler EventHandler) (Subscription, error)
	// Close drains queued events and stops all subscriptions.
	Close(ctx context.Context) error
}
