package inventory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/application/state"
	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/checkout"
	"github.com/pos/backend/internal/domain/shared"
)

const sourceInventory = "inventory-watcher"

// StockWatcherPriority runs the stock decrement before lower-priority
// consumers of the same transaction event
const StockWatcherPriority = 10

// StockWatcher reacts to completed transactions by decrementing product stock
// and raising low-stock and out-of-stock alerts. It keeps a processed-
// transaction guard so a redelivered event never decrements twice.
type StockWatcher struct {
	store  *state.Store
	bus    shared.EventBus
	logger *zap.Logger

	mu        sync.Mutex
	processed map[uuid.UUID]struct{}

	unsubscribe shared.UnsubscribeFunc
}

// NewStockWatcher creates the watcher; call Start to begin consuming
func NewStockWatcher(store *state.Store, bus shared.EventBus, logger *zap.Logger) *StockWatcher {
	return &StockWatcher{
		store:     store,
		bus:       bus,
		logger:    logger.Named("inventory"),
		processed: make(map[uuid.UUID]struct{}),
	}
}

// Start subscribes the watcher to transaction:completed
func (w *StockWatcher) Start() error {
	unsub, err := w.bus.Subscribe(shared.EventTransactionCompleted, w.handle, shared.SubscribeOptions{
		Priority: StockWatcherPriority,
	})
	if err != nil {
		return err
	}
	w.unsubscribe = unsub
	return nil
}

// Stop removes the subscription
func (w *StockWatcher) Stop() {
	if w.unsubscribe != nil {
		w.unsubscribe()
	}
}

func (w *StockWatcher) handle(ctx context.Context, e shared.Event) error {
	txn, ok := e.Payload.(checkout.Transaction)
	if !ok {
		return shared.NewDomainError("VALIDATION_ERROR", "Unexpected payload on transaction:completed")
	}

	if !w.markProcessed(txn.ID) {
		w.logger.Debug("transaction already processed, skipping",
			zap.String("transaction_id", txn.ID.String()))
		return nil
	}

	for _, item := range txn.Items {
		if err := w.decrement(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// markProcessed reports whether this is the first delivery of the transaction
func (w *StockWatcher) markProcessed(id uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, seen := w.processed[id]; seen {
		return false
	}
	w.processed[id] = struct{}{}
	return true
}

func (w *StockWatcher) decrement(ctx context.Context, item checkout.LineItem) error {
	// The decrement runs inside the reducer so concurrent deliveries touching
	// the same product never lose an update
	err := w.store.Dispatch(ctx, state.AdjustProductStock{ID: item.ProductID, Delta: -item.Quantity})
	if errors.Is(err, shared.ErrNotFound) {
		w.logger.Warn("sold product no longer in catalog",
			zap.String("product_id", item.ProductID.String()))
		return nil
	}
	if err != nil {
		return err
	}

	product, ok := w.store.Product(item.ProductID)
	if !ok {
		return nil
	}

	w.bus.Publish(ctx, shared.EventInventoryUpdated, catalog.InventoryUpdatedPayload{
		ProductID: product.ID,
		NewStock:  product.Stock,
		Reason:    "sale",
	}, shared.PublishOptions{Source: sourceInventory})

	switch {
	case product.IsOutOfStock():
		w.bus.Publish(ctx, shared.EventProductOutOfStock, catalog.OutOfStockPayload{
			ProductID:   product.ID,
			ProductName: product.Name,
		}, shared.PublishOptions{Source: sourceInventory})
	case product.IsLowStock():
		w.bus.Publish(ctx, shared.EventInventoryLowStockAlert, catalog.LowStockAlertPayload{
			ProductID:    product.ID,
			ProductName:  product.Name,
			CurrentStock: product.Stock,
			ReorderLevel: product.ReorderLevel,
		}, shared.PublishOptions{Source: sourceInventory})
	}

	return nil
}
