package loyalty

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/application/state"
	"github.com/pos/backend/internal/domain/checkout"
	"github.com/pos/backend/internal/domain/customer"
	"github.com/pos/backend/internal/domain/shared"
)

const sourceLoyalty = "loyalty-watcher"

// WatcherPriority places loyalty awarding after the stock decrement in the
// transaction:completed dispatch order
const WatcherPriority = 5

// Watcher reacts to completed transactions by awarding loyalty points to the
// attached customer and recording purchase statistics. A processed-
// transaction guard keeps redeliveries from double-awarding.
type Watcher struct {
	store  *state.Store
	bus    shared.EventBus
	logger *zap.Logger

	mu        sync.Mutex
	processed map[uuid.UUID]struct{}

	unsubscribe shared.UnsubscribeFunc
}

// NewWatcher creates the watcher; call Start to begin consuming
func NewWatcher(store *state.Store, bus shared.EventBus, logger *zap.Logger) *Watcher {
	return &Watcher{
		store:     store,
		bus:       bus,
		logger:    logger.Named("loyalty"),
		processed: make(map[uuid.UUID]struct{}),
	}
}

// Start subscribes the watcher to transaction:completed
func (w *Watcher) Start() error {
	unsub, err := w.bus.Subscribe(shared.EventTransactionCompleted, w.handle, shared.SubscribeOptions{
		Priority: WatcherPriority,
	})
	if err != nil {
		return err
	}
	w.unsubscribe = unsub
	return nil
}

// Stop removes the subscription
func (w *Watcher) Stop() {
	if w.unsubscribe != nil {
		w.unsubscribe()
	}
}

func (w *Watcher) handle(ctx context.Context, e shared.Event) error {
	txn, ok := e.Payload.(checkout.Transaction)
	if !ok {
		return shared.NewDomainError("VALIDATION_ERROR", "Unexpected payload on transaction:completed")
	}
	if txn.CustomerID == nil {
		return nil
	}

	if !w.markProcessed(txn.ID) {
		w.logger.Debug("transaction already processed, skipping",
			zap.String("transaction_id", txn.ID.String()))
		return nil
	}

	cust, ok := w.store.Customer(*txn.CustomerID)
	if !ok {
		w.logger.Warn("transaction references unknown customer",
			zap.String("customer_id", txn.CustomerID.String()))
		return nil
	}

	cfg := w.store.Settings().Loyalty
	oldTier := cust.Tier

	cust.RecordPurchase(txn.Total, txn.Timestamp)

	points := 0
	if cfg.Enabled {
		points = int(txn.Total.Mul(cfg.PointsPerDollar).IntPart())
		if points > 0 {
			cust.AddPoints(points)
		}
	}

	if err := w.store.Dispatch(ctx, state.UpdateCustomer{Customer: cust}); err != nil {
		return err
	}

	if points > 0 {
		w.bus.Publish(ctx, shared.EventLoyaltyPointsAwarded, customer.PointsAwardedPayload{
			CustomerID:    cust.ID,
			Points:        points,
			TransactionID: txn.ID,
			NewBalance:    cust.Points,
			Tier:          cust.Tier,
		}, shared.PublishOptions{Source: sourceLoyalty})
	}
	if cust.Tier != oldTier {
		w.bus.Publish(ctx, shared.EventCustomerTierChanged, customer.TierChangedPayload{
			CustomerID: cust.ID,
			OldTier:    oldTier,
			NewTier:    cust.Tier,
		}, shared.PublishOptions{Source: sourceLoyalty})
	}

	return nil
}

// markProcessed reports whether this is the first delivery of the transaction
func (w *Watcher) markProcessed(id uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, seen := w.processed[id]; seen {
		return false
	}
	w.processed[id] = struct{}{}
	return true
}
