package shared

import (
	"context"

	"github.com/google/uuid"
)

// Handler processes a single event delivery. Returning an error marks the
// delivery as failed in the dispatch report; it never aborts delivery to the
// remaining subscribers.
type Handler func(ctx context.Context, event Event) error

// SubscribeOptions control ordering and lifetime of a subscription
type SubscribeOptions struct {
	// Priority orders dispatch: higher values are invoked first.
	// Ties preserve subscription order.
	Priority int
	// Once removes the subscription after its first invocation,
	// whether the handler succeeded or failed.
	Once bool
}

// PublishOptions annotate a publish call
type PublishOptions struct {
	// Source tags the event origin for diagnostics
	Source string
}

// HandlerError records a single subscriber failure during dispatch
type HandlerError struct {
	SubscriptionID uuid.UUID `json:"subscriptionId"`
	Err            error     `json:"error"`
}

// DispatchReport is returned from every publish call
type DispatchReport struct {
	EventID             uuid.UUID      `json:"eventId"`
	SubscribersNotified int            `json:"subscribersNotified"`
	Errors              []HandlerError `json:"errors"`
}

// UnsubscribeFunc removes a subscription. Safe to call more than once.
type UnsubscribeFunc func()

// EventPublisher publishes events to subscribers
type EventPublisher interface {
	// Publish invokes all current subscribers synchronously, in priority
	// order, and returns once every handler has run.
	Publish(ctx context.Context, name string, payload interface{}, opts PublishOptions) DispatchReport
	// PublishAsync starts handlers in priority order but lets them complete
	// concurrently; it returns once all of them have settled.
	PublishAsync(ctx context.Context, name string, payload interface{}, opts PublishOptions) DispatchReport
}

// EventSubscriber registers handlers for named events
type EventSubscriber interface {
	// Subscribe registers a handler. A nil handler is rejected.
	Subscribe(name string, handler Handler, opts SubscribeOptions) (UnsubscribeFunc, error)
}

// EventBus combines publisher and subscriber capabilities
type EventBus interface {
	EventPublisher
	EventSubscriber
	// History returns up to limit recent events, newest first, optionally
	// filtered by event name (empty name matches all).
	History(name string, limit int) []Event
}
