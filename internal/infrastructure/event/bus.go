package event

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/observability"
	"go.uber.org/zap"
)

// DefaultHistoryCapacity bounds the diagnostic history ring buffer
const DefaultHistoryCapacity = 1000

type subscription struct {
	id       uuid.UUID
	name     string
	handler  shared.Handler
	priority int
	once     bool
	fired    atomic.Bool
	seq      uint64
}

// claim reserves a once subscription for its single firing. Regular
// subscriptions are always claimable.
func (s *subscription) claim() bool {
	if !s.once {
		return true
	}
	return s.fired.CompareAndSwap(false, true)
}

// Bus implements shared.EventBus with in-memory pub/sub: priority-ordered
// synchronous dispatch, one-shot subscriptions, and a bounded history buffer.
type Bus struct {
	mu         sync.RWMutex
	subs       map[string][]*subscription
	seq        uint64
	history    []shared.Event
	historyPos int
	historyLen int
	logger     *zap.Logger
}

// NewBus creates a new in-memory event bus. A non-positive history capacity
// falls back to DefaultHistoryCapacity.
func NewBus(logger *zap.Logger, historyCapacity int) *Bus {
	if historyCapacity <= 0 {
		historyCapacity = DefaultHistoryCapacity
	}
	return &Bus{
		subs:    make(map[string][]*subscription),
		history: make([]shared.Event, historyCapacity),
		logger:  logger,
	}
}

// Subscribe registers a handler for an event name. Handlers are dispatched in
// descending priority order; ties preserve subscription order. The returned
// function removes the subscription and is safe to call more than once.
func (b *Bus) Subscribe(name string, handler shared.Handler, opts shared.SubscribeOptions) (shared.UnsubscribeFunc, error) {
	if handler == nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Handler must not be nil")
	}
	if name == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Event name must not be empty")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	sub := &subscription{
		id:       uuid.New(),
		name:     name,
		handler:  handler,
		priority: opts.Priority,
		once:     opts.Once,
		seq:      b.seq,
	}

	list := b.subs[name]
	idx := sort.Search(len(list), func(i int) bool {
		return list[i].priority < sub.priority
	})
	list = append(list, nil)
	copy(list[idx+1:], list[idx:])
	list[idx] = sub
	b.subs[name] = list

	b.logger.Debug("subscribed",
		zap.String("event", name),
		zap.String("subscription_id", sub.id.String()),
		zap.Int("priority", sub.priority),
		zap.Bool("once", sub.once),
	)

	return func() { b.remove(name, sub.id) }, nil
}

// Publish synchronously invokes all current subscribers in priority order.
// Handler failures are collected in the report and never interrupt dispatch
// of the remaining handlers. Subscribing or unsubscribing from inside a
// handler does not affect the snapshot being iterated.
func (b *Bus) Publish(ctx context.Context, name string, payload interface{}, opts shared.PublishOptions) shared.DispatchReport {
	evt, snapshot := b.prepare(name, payload, opts)

	report := shared.DispatchReport{EventID: evt.ID}
	for _, sub := range snapshot {
		if !sub.claim() {
			continue
		}
		err := b.invoke(ctx, sub, evt)
		if sub.once {
			b.remove(name, sub.id)
		}
		if err != nil {
			report.Errors = append(report.Errors, shared.HandlerError{SubscriptionID: sub.id, Err: err})
			continue
		}
		report.SubscribersNotified++
	}

	b.logDispatch(evt, report)
	return report
}

// PublishAsync starts handlers in priority order and waits for all of them to
// settle; completion order is not guaranteed. Error aggregation matches
// Publish.
func (b *Bus) PublishAsync(ctx context.Context, name string, payload interface{}, opts shared.PublishOptions) shared.DispatchReport {
	evt, snapshot := b.prepare(name, payload, opts)

	report := shared.DispatchReport{EventID: evt.ID}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, sub := range snapshot {
		wg.Add(1)
		go func(sub *subscription) {
			defer wg.Done()
			if !sub.claim() {
				return
			}
			err := b.invoke(ctx, sub, evt)
			if sub.once {
				b.remove(name, sub.id)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Errors = append(report.Errors, shared.HandlerError{SubscriptionID: sub.id, Err: err})
				return
			}
			report.SubscribersNotified++
		}(sub)
	}
	wg.Wait()

	b.logDispatch(evt, report)
	return report
}

// History returns up to limit recent events, newest first. An empty name
// matches all events; limit <= 0 defaults to 50.
func (b *Bus) History(name string, limit int) []shared.Event {
	if limit <= 0 {
		limit = 50
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]shared.Event, 0, limit)
	for i := 0; i < b.historyLen && len(out) < limit; i++ {
		pos := (b.historyPos - 1 - i + len(b.history)) % len(b.history)
		evt := b.history[pos]
		if name != "" && evt.Name != name {
			continue
		}
		out = append(out, evt)
	}
	return out
}

// Stats is a diagnostic snapshot of the bus state
type Stats struct {
	TotalSubscribers int            `json:"totalSubscribers"`
	Subscribers      map[string]int `json:"subscribers"`
	HistorySize      int            `json:"historySize"`
	HistoryCapacity  int            `json:"historyCapacity"`
}

// Stats returns subscriber counts per event name and history usage
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := Stats{
		Subscribers:     make(map[string]int, len(b.subs)),
		HistorySize:     b.historyLen,
		HistoryCapacity: len(b.history),
	}
	for name, list := range b.subs {
		stats.Subscribers[name] = len(list)
		stats.TotalSubscribers += len(list)
	}
	return stats
}

// prepare builds the event envelope, records history, and snapshots the
// subscriber list so in-flight dispatch is isolated from mutations.
func (b *Bus) prepare(name string, payload interface{}, opts shared.PublishOptions) (shared.Event, []*subscription) {
	evt := shared.NewEvent(name, payload, opts.Source)

	b.mu.Lock()
	b.history[b.historyPos] = evt
	b.historyPos = (b.historyPos + 1) % len(b.history)
	if b.historyLen < len(b.history) {
		b.historyLen++
	}
	snapshot := append([]*subscription(nil), b.subs[name]...)
	b.mu.Unlock()

	observability.EventsPublished.WithLabelValues(name).Inc()
	return evt, snapshot
}

// invoke dispatches to one handler, converting panics into dispatch errors
func (b *Bus) invoke(ctx context.Context, sub *subscription, evt shared.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = shared.NewDispatchError(fmt.Sprintf("handler panicked: %v", r))
			b.logger.Error("handler panicked",
				zap.String("event", evt.Name),
				zap.String("subscription_id", sub.id.String()),
				zap.Any("panic", r),
			)
		}
		if err != nil {
			observability.HandlerFailures.WithLabelValues(evt.Name).Inc()
		}
	}()

	return sub.handler(ctx, evt)
}

func (b *Bus) remove(name string, id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[name]
	for i, sub := range list {
		if sub.id == id {
			b.subs[name] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func (b *Bus) logDispatch(evt shared.Event, report shared.DispatchReport) {
	if len(report.Errors) > 0 {
		b.logger.Warn("event dispatched with handler errors",
			zap.String("event", evt.Name),
			zap.String("event_id", evt.ID.String()),
			zap.Int("notified", report.SubscribersNotified),
			zap.Int("errors", len(report.Errors)),
		)
		return
	}
	b.logger.Debug("event dispatched",
		zap.String("event", evt.Name),
		zap.String("event_id", evt.ID.String()),
		zap.Int("notified", report.SubscribersNotified),
	)
}

// Ensure Bus implements shared.EventBus
var _ shared.EventBus = (*Bus)(nil)
