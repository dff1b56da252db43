package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/checkout"
	"github.com/pos/backend/internal/domain/customer"
	"github.com/pos/backend/internal/domain/settings"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/observability"
)

// settingsDocKey is the record id of the single settings document
const settingsDocKey = "app-config"

const sourceStateStore = "state-store"

// Store owns the business state. All mutation goes through Dispatch or
// DispatchSync with a named action; readers get copies through the projection
// methods and never see the internal slices.
type Store struct {
	dispatchMu sync.Mutex   // serializes reduce+commit, keeping actions in call order
	stateMu    sync.RWMutex // guards the current state version for readers

	state businessState

	persistent shared.Store
	bus        shared.EventPublisher
	logger     *zap.Logger
	writes     sync.WaitGroup
}

// NewStore creates a business state store backed by the given persistent
// store. Call Load before serving reads.
func NewStore(persistent shared.Store, bus shared.EventPublisher, logger *zap.Logger) *Store {
	return &Store{
		state:      businessState{Settings: settings.Default()},
		persistent: persistent,
		bus:        bus,
		logger:     logger.Named("state"),
	}
}

// Dispatch applies an action to the in-memory state and schedules the
// persistent write in the background. The in-memory update is visible to
// readers immediately; a failed write is surfaced later through the
// system:error event channel.
func (s *Store) Dispatch(ctx context.Context, action Action) error {
	effect, err := s.apply(action)
	if err != nil {
		return err
	}
	if effect == nil {
		return nil
	}

	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		s.persistBackground(context.WithoutCancel(ctx), action.ActionName(), effect)
	}()
	return nil
}

// DispatchSync persists the action's write before committing the in-memory
// update, so a storage failure leaves the state untouched. Settlement uses
// this for its commit point.
func (s *Store) DispatchSync(ctx context.Context, action Action) error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	next, err := reduce(s.snapshot(), action)
	if err != nil {
		return err
	}
	effect, err := effectFor(action, next)
	if err != nil {
		return err
	}
	if effect != nil {
		if err := effect.run(ctx, s.persistent); err != nil {
			observability.StoreWriteFailures.WithLabelValues(effect.collection).Inc()
			return shared.NewStorageError(fmt.Sprintf("Failed to save %s: %v", effect.collection, err))
		}
	}
	s.commit(next)
	return nil
}

// Flush blocks until all background writes scheduled so far have finished
func (s *Store) Flush() {
	s.writes.Wait()
}

// apply runs the reducer and commits the next state, returning the pending
// persistence effect
func (s *Store) apply(action Action) (*persistEffect, error) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	next, err := reduce(s.snapshot(), action)
	if err != nil {
		return nil, err
	}
	effect, err := effectFor(action, next)
	if err != nil {
		return nil, err
	}
	s.commit(next)
	return effect, nil
}

func (s *Store) snapshot() businessState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Store) commit(next businessState) {
	s.stateMu.Lock()
	s.state = next
	s.stateMu.Unlock()
}

func (s *Store) persistBackground(ctx context.Context, actionName string, effect *persistEffect) {
	if err := effect.run(ctx, s.persistent); err != nil {
		observability.StoreWriteFailures.WithLabelValues(effect.collection).Inc()
		s.logger.Error("background persistence failed",
			zap.String("action", actionName),
			zap.String("collection", effect.collection),
			zap.Error(err),
		)
		s.bus.Publish(ctx, shared.EventSystemError, shared.SystemErrorPayload{
			Op:      actionName,
			Subject: effect.collection,
			Message: err.Error(),
		}, shared.PublishOptions{Source: sourceStateStore})
	}
}

// Load hydrates the state from the persistent store. An empty product
// collection triggers the demo seed so the terminal never starts against a
// blank catalog.
func (s *Store) Load(ctx context.Context) error {
	loaded := businessState{Settings: settings.Default()}

	records, err := s.persistent.GetAll(ctx, shared.CollectionProducts, 0)
	if err != nil {
		return shared.NewStorageError(fmt.Sprintf("Failed to load products: %v", err))
	}
	for _, rec := range records {
		var p catalog.Product
		if err := json.Unmarshal(rec.Data, &p); err != nil {
			return fmt.Errorf("decode product %s: %w", rec.ID, err)
		}
		loaded.Products = append(loaded.Products, p)
	}

	records, err = s.persistent.GetAll(ctx, shared.CollectionCustomers, 0)
	if err != nil {
		return shared.NewStorageError(fmt.Sprintf("Failed to load customers: %v", err))
	}
	for _, rec := range records {
		var c customer.Customer
		if err := json.Unmarshal(rec.Data, &c); err != nil {
			return fmt.Errorf("decode customer %s: %w", rec.ID, err)
		}
		loaded.Customers = append(loaded.Customers, c)
	}

	records, err = s.persistent.GetAll(ctx, shared.CollectionTransactions, 0)
	if err != nil {
		return shared.NewStorageError(fmt.Sprintf("Failed to load transactions: %v", err))
	}
	for _, rec := range records {
		var t checkout.Transaction
		if err := json.Unmarshal(rec.Data, &t); err != nil {
			return fmt.Errorf("decode transaction %s: %w", rec.ID, err)
		}
		loaded.Transactions = append(loaded.Transactions, t)
	}

	if doc, err := s.persistent.Get(ctx, shared.CollectionSettings, settingsDocKey); err == nil {
		var stored settingsDoc
		if err := json.Unmarshal(doc.Data, &stored); err != nil {
			return fmt.Errorf("decode settings: %w", err)
		}
		loaded.Settings = stored.Settings
	} else if !errors.Is(err, shared.ErrNotFound) {
		return shared.NewStorageError(fmt.Sprintf("Failed to load settings: %v", err))
	}

	s.commit(loaded)

	if len(loaded.Products) == 0 {
		if err := s.seed(ctx); err != nil {
			return err
		}
	}

	s.logger.Info("business state loaded",
		zap.Int("products", len(s.Products())),
		zap.Int("customers", len(loaded.Customers)),
		zap.Int("transactions", len(loaded.Transactions)),
	)
	return nil
}

// Products returns a copy of the product collection
func (s *Store) Products() []catalog.Product {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return append([]catalog.Product(nil), s.state.Products...)
}

// Product returns the product with the given id
func (s *Store) Product(id uuid.UUID) (catalog.Product, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if idx := productIndex(s.state.Products, id); idx >= 0 {
		return s.state.Products[idx], true
	}
	return catalog.Product{}, false
}

// Customers returns a copy of the customer collection
func (s *Store) Customers() []customer.Customer {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return append([]customer.Customer(nil), s.state.Customers...)
}

// Customer returns the customer with the given id
func (s *Store) Customer(id uuid.UUID) (customer.Customer, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if idx := customerIndex(s.state.Customers, id); idx >= 0 {
		return s.state.Customers[idx], true
	}
	return customer.Customer{}, false
}

// Transactions returns a copy of the transaction log, oldest first
func (s *Store) Transactions() []checkout.Transaction {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return append([]checkout.Transaction(nil), s.state.Transactions...)
}

// Settings returns the current business settings
func (s *Store) Settings() settings.Settings {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state.Settings
}

// persistEffect is the store write an action implies
type persistEffect struct {
	collection string
	run        func(ctx context.Context, store shared.Store) error
}

// effectFor maps an action to its persistent write. The next state is needed
// for actions whose document is derived rather than carried, like settings.
func effectFor(action Action, next businessState) (*persistEffect, error) {
	switch a := action.(type) {
	case SetProducts:
		records, err := toRecords(a.Products, func(p catalog.Product) string { return p.ID.String() })
		if err != nil {
			return nil, err
		}
		return bulkEffect(shared.CollectionProducts, records), nil
	case AddProduct:
		return upsertEffect(shared.CollectionProducts, a.Product.ID.String(), a.Product)
	case UpdateProduct:
		return upsertEffect(shared.CollectionProducts, a.Product.ID.String(), a.Product)
	case DeleteProduct:
		return deleteEffect(shared.CollectionProducts, a.ID.String()), nil
	case AdjustProductStock:
		// The adjusted product only exists in the next state
		idx := productIndex(next.Products, a.ID)
		if idx < 0 {
			return nil, shared.ErrNotFound
		}
		p := next.Products[idx]
		return upsertEffect(shared.CollectionProducts, p.ID.String(), p)

	case SetCustomers:
		records, err := toRecords(a.Customers, func(c customer.Customer) string { return c.ID.String() })
		if err != nil {
			return nil, err
		}
		return bulkEffect(shared.CollectionCustomers, records), nil
	case AddCustomer:
		return upsertEffect(shared.CollectionCustomers, a.Customer.ID.String(), a.Customer)
	case UpdateCustomer:
		return upsertEffect(shared.CollectionCustomers, a.Customer.ID.String(), a.Customer)
	case DeleteCustomer:
		return deleteEffect(shared.CollectionCustomers, a.ID.String()), nil

	case AddTransaction:
		data, err := json.Marshal(a.Transaction)
		if err != nil {
			return nil, fmt.Errorf("encode transaction: %w", err)
		}
		rec := shared.Record{ID: a.Transaction.ID.String(), Data: data}
		return &persistEffect{
			collection: shared.CollectionTransactions,
			run: func(ctx context.Context, store shared.Store) error {
				return store.Add(ctx, shared.CollectionTransactions, rec)
			},
		}, nil

	case MergeSettings:
		// Persist the full merged document, not the patch
		return upsertEffect(shared.CollectionSettings, settingsDocKey, settingsDoc{Key: settingsDocKey, Settings: next.Settings})

	default:
		return nil, nil
	}
}

type settingsDoc struct {
	Key string `json:"key"`
	settings.Settings
}

func toRecords[T any](items []T, id func(T) string) ([]shared.Record, error) {
	records := make([]shared.Record, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("encode record: %w", err)
		}
		records = append(records, shared.Record{ID: id(item), Data: data})
	}
	return records, nil
}

func bulkEffect(collection string, records []shared.Record) *persistEffect {
	return &persistEffect{
		collection: collection,
		run: func(ctx context.Context, store shared.Store) error {
			return store.BulkUpdate(ctx, collection, records)
		},
	}
}

func upsertEffect(collection, id string, v interface{}) (*persistEffect, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record %s/%s: %w", collection, id, err)
	}
	rec := shared.Record{ID: id, Data: data}
	return &persistEffect{
		collection: collection,
		run: func(ctx context.Context, store shared.Store) error {
			return store.Update(ctx, collection, rec)
		},
	}, nil
}

func deleteEffect(collection, id string) *persistEffect {
	return &persistEffect{
		collection: collection,
		run: func(ctx context.Context, store shared.Store) error {
			return store.Delete(ctx, collection, id)
		},
	}
}
