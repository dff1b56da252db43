package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pos/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBus() *Bus {
	return NewBus(zap.NewNop(), 0)
}

func TestBus_Publish_PriorityOrder(t *testing.T) {
	bus := newTestBus()
	var order []string

	_, err := bus.Subscribe("test:event", func(ctx context.Context, e shared.Event) error {
		order = append(order, "low")
		return nil
	}, shared.SubscribeOptions{Priority: 0})
	require.NoError(t, err)

	_, err = bus.Subscribe("test:event", func(ctx context.Context, e shared.Event) error {
		order = append(order, "high")
		return nil
	}, shared.SubscribeOptions{Priority: 10})
	require.NoError(t, err)

	_, err = bus.Subscribe("test:event", func(ctx context.Context, e shared.Event) error {
		order = append(order, "mid")
		return nil
	}, shared.SubscribeOptions{Priority: 5})
	require.NoError(t, err)

	report := bus.Publish(context.Background(), "test:event", nil, shared.PublishOptions{})

	assert.Equal(t, 3, report.SubscribersNotified)
	assert.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestBus_Publish_PriorityTiesPreserveSubscriptionOrder(t *testing.T) {
	bus := newTestBus()
	var order []string

	for _, name := range []string{"first", "second", "third"} {
		name := name
		_, err := bus.Subscribe("test:event", func(ctx context.Context, e shared.Event) error {
			order = append(order, name)
			return nil
		}, shared.SubscribeOptions{Priority: 7})
		require.NoError(t, err)
	}

	bus.Publish(context.Background(), "test:event", nil, shared.PublishOptions{})

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestBus_Publish_HandlerErrorDoesNotStopDispatch(t *testing.T) {
	bus := newTestBus()
	var called []string

	_, err := bus.Subscribe("test:event", func(ctx context.Context, e shared.Event) error {
		called = append(called, "failing")
		return errors.New("boom")
	}, shared.SubscribeOptions{Priority: 10})
	require.NoError(t, err)

	_, err = bus.Subscribe("test:event", func(ctx context.Context, e shared.Event) error {
		called = append(called, "ok")
		return nil
	}, shared.SubscribeOptions{})
	require.NoError(t, err)

	report := bus.Publish(context.Background(), "test:event", nil, shared.PublishOptions{})

	assert.Equal(t, []string{"failing", "ok"}, called)
	assert.Equal(t, 1, report.SubscribersNotified)
	require.Len(t, report.Errors, 1)
	assert.EqualError(t, report.Errors[0].Err, "boom")
}

func TestBus_Publish_HandlerPanicIsCaught(t *testing.T) {
	bus := newTestBus()
	var called bool

	_, err := bus.Subscribe("test:event", func(ctx context.Context, e shared.Event) error {
		panic("bad handler")
	}, shared.SubscribeOptions{Priority: 10})
	require.NoError(t, err)

	_, err = bus.Subscribe("test:event", func(ctx context.Context, e shared.Event) error {
		called = true
		return nil
	}, shared.SubscribeOptions{})
	require.NoError(t, err)

	report := bus.Publish(context.Background(), "test:event", nil, shared.PublishOptions{})

	assert.True(t, called)
	require.Len(t, report.Errors, 1)
	var domainErr *shared.DomainError
	require.ErrorAs(t, report.Errors[0].Err, &domainErr)
	assert.Equal(t, "DISPATCH_ERROR", domainErr.Code)
}

func TestBus_Publish_OnceFiresExactlyOnce(t *testing.T) {
	bus := newTestBus()
	count := 0

	_, err := bus.Subscribe("test:event", func(ctx context.Context, e shared.Event) error {
		count++
		return nil
	}, shared.SubscribeOptions{Once: true})
	require.NoError(t, err)

	bus.Publish(context.Background(), "test:event", nil, shared.PublishOptions{})
	bus.Publish(context.Background(), "test:event", nil, shared.PublishOptions{})
	bus.Publish(context.Background(), "test:event", nil, shared.PublishOptions{})

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, bus.Stats().TotalSubscribers)
}

func TestBus_Publish_OnceRemovedAfterFailedInvocation(t *testing.T) {
	bus := newTestBus()
	count := 0

	_, err := bus.Subscribe("test:event", func(ctx context.Context, e shared.Event) error {
		count++
		return errors.New("boom")
	}, shared.SubscribeOptions{Once: true})
	require.NoError(t, err)

	bus.Publish(context.Background(), "test:event", nil, shared.PublishOptions{})
	bus.Publish(context.Background(), "test:event", nil, shared.PublishOptions{})

	assert.Equal(t, 1, count)
}

func TestBus_Publish_SnapshotIsolation(t *testing.T) {
	bus := newTestBus()
	var called []string
	var unsubLate shared.UnsubscribeFunc

	// The first handler unsubscribes the later one and adds a new one;
	// neither change may affect the snapshot being dispatched.
	_, err := bus.Subscribe("test:event", func(ctx context.Context, e shared.Event) error {
		called = append(called, "first")
		unsubLate()
		_, subErr := bus.Subscribe("test:event", func(ctx context.Context, e shared.Event) error {
			called = append(called, "added-during-dispatch")
			return nil
		}, shared.SubscribeOptions{Priority: 100})
		return subErr
	}, shared.SubscribeOptions{Priority: 10})
	require.NoError(t, err)

	unsubLate, err = bus.Subscribe("test:event", func(ctx context.Context, e shared.Event) error {
		called = append(called, "late")
		return nil
	}, shared.SubscribeOptions{})
	require.NoError(t, err)

	bus.Publish(context.Background(), "test:event", nil, shared.PublishOptions{})

	// The already-snapshotted "late" handler still runs; the handler added
	// mid-dispatch does not.
	assert.Equal(t, []string{"first", "late"}, called)
}

func TestBus_Unsubscribe_Idempotent(t *testing.T) {
	bus := newTestBus()
	count := 0

	unsub, err := bus.Subscribe("test:event", func(ctx context.Context, e shared.Event) error {
		count++
		return nil
	}, shared.SubscribeOptions{})
	require.NoError(t, err)

	unsub()
	unsub()

	bus.Publish(context.Background(), "test:event", nil, shared.PublishOptions{})
	assert.Equal(t, 0, count)
}

func TestBus_Subscribe_NilHandler(t *testing.T) {
	bus := newTestBus()
	_, err := bus.Subscribe("test:event", nil, shared.SubscribeOptions{})
	assert.Error(t, err)
}

func TestBus_Publish_NoSubscribersStillRecordsHistory(t *testing.T) {
	bus := newTestBus()

	report := bus.Publish(context.Background(), "test:event", "payload", shared.PublishOptions{Source: "test"})

	assert.Equal(t, 0, report.SubscribersNotified)
	assert.Empty(t, report.Errors)

	history := bus.History("test:event", 10)
	require.Len(t, history, 1)
	assert.Equal(t, report.EventID, history[0].ID)
	assert.Equal(t, "test", history[0].Source)
}

func TestBus_History_NewestFirstAndFiltered(t *testing.T) {
	bus := newTestBus()

	bus.Publish(context.Background(), "a", 1, shared.PublishOptions{})
	bus.Publish(context.Background(), "b", 2, shared.PublishOptions{})
	bus.Publish(context.Background(), "a", 3, shared.PublishOptions{})

	all := bus.History("", 10)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, 3, all[0].Payload)

	onlyA := bus.History("a", 10)
	require.Len(t, onlyA, 2)
	assert.Equal(t, 3, onlyA[0].Payload)
	assert.Equal(t, 1, onlyA[1].Payload)
}

func TestBus_History_EvictsOldestPastCapacity(t *testing.T) {
	bus := NewBus(zap.NewNop(), 3)

	for i := 0; i < 5; i++ {
		bus.Publish(context.Background(), "test:event", i, shared.PublishOptions{})
	}

	history := bus.History("test:event", 10)
	require.Len(t, history, 3)
	assert.Equal(t, 4, history[0].Payload)
	assert.Equal(t, 2, history[2].Payload)
}

func TestBus_PublishAsync_WaitsForAllHandlers(t *testing.T) {
	bus := newTestBus()

	var mu sync.Mutex
	done := 0

	for i := 0; i < 5; i++ {
		_, err := bus.Subscribe("test:event", func(ctx context.Context, e shared.Event) error {
			mu.Lock()
			done++
			mu.Unlock()
			return nil
		}, shared.SubscribeOptions{Priority: i})
		require.NoError(t, err)
	}

	report := bus.PublishAsync(context.Background(), "test:event", nil, shared.PublishOptions{})

	assert.Equal(t, 5, report.SubscribersNotified)
	mu.Lock()
	assert.Equal(t, 5, done)
	mu.Unlock()
}

func TestBus_PublishAsync_AggregatesErrors(t *testing.T) {
	bus := newTestBus()

	_, err := bus.Subscribe("test:event", func(ctx context.Context, e shared.Event) error {
		return errors.New("boom")
	}, shared.SubscribeOptions{})
	require.NoError(t, err)

	_, err = bus.Subscribe("test:event", func(ctx context.Context, e shared.Event) error {
		return nil
	}, shared.SubscribeOptions{})
	require.NoError(t, err)

	report := bus.PublishAsync(context.Background(), "test:event", nil, shared.PublishOptions{})

	assert.Equal(t, 1, report.SubscribersNotified)
	assert.Len(t, report.Errors, 1)
}

func TestBus_Stats(t *testing.T) {
	bus := newTestBus()

	_, err := bus.Subscribe("a", func(ctx context.Context, e shared.Event) error { return nil }, shared.SubscribeOptions{})
	require.NoError(t, err)
	_, err = bus.Subscribe("a", func(ctx context.Context, e shared.Event) error { return nil }, shared.SubscribeOptions{})
	require.NoError(t, err)
	_, err = bus.Subscribe("b", func(ctx context.Context, e shared.Event) error { return nil }, shared.SubscribeOptions{})
	require.NoError(t, err)

	bus.Publish(context.Background(), "a", nil, shared.PublishOptions{})

	stats := bus.Stats()
	assert.Equal(t, 3, stats.TotalSubscribers)
	assert.Equal(t, 2, stats.Subscribers["a"])
	assert.Equal(t, 1, stats.HistorySize)
}
