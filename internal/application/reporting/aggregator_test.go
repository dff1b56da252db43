package reporting

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/application/state"
	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/checkout"
	"github.com/pos/backend/internal/domain/customer"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/infrastructure/event"
)

// memStore is a minimal in-memory shared.Store for aggregator tests
type memStore struct {
	mu          sync.Mutex
	collections map[string]map[string]json.RawMessage
}

func newMemStore() *memStore {
	return &memStore{collections: make(map[string]map[string]json.RawMessage)}
}

func (m *memStore) coll(name string) map[string]json.RawMessage {
	if m.collections[name] == nil {
		m.collections[name] = make(map[string]json.RawMessage)
	}
	return m.collections[name]
}

func (m *memStore) Add(ctx context.Context, collection string, record shared.Record) error {
	return m.Update(ctx, collection, record)
}

func (m *memStore) Get(ctx context.Context, collection, id string) (shared.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.coll(collection)[id]
	if !ok {
		return shared.Record{}, shared.ErrNotFound
	}
	return shared.Record{ID: id, Data: data}, nil
}

func (m *memStore) GetAll(ctx context.Context, collection string, limit int) ([]shared.Record, error) {
	return nil, nil
}

func (m *memStore) Update(ctx context.Context, collection string, record shared.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coll(collection)[record.ID] = record.Data
	return nil
}

func (m *memStore) Delete(ctx context.Context, collection, id string) error { return nil }

func (m *memStore) BulkUpdate(ctx context.Context, collection string, records []shared.Record) error {
	for _, r := range records {
		if err := m.Update(ctx, collection, r); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) Search(ctx context.Context, collection, field, value string, exact bool) ([]shared.Record, error) {
	return nil, nil
}

func (m *memStore) ExportAll(ctx context.Context) (*shared.Snapshot, error) {
	return &shared.Snapshot{Version: 1, Data: map[string][]json.RawMessage{}}, nil
}

func (m *memStore) ImportAll(ctx context.Context, snapshot *shared.Snapshot) error { return nil }

type fixture struct {
	aggregator *Aggregator
	store      *state.Store
	bus        *event.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bus := event.NewBus(zap.NewNop(), 0)
	store := state.NewStore(newMemStore(), bus, zap.NewNop())
	a := NewAggregator(store, bus, zap.NewNop())
	f := &fixture{aggregator: a, store: store, bus: bus}
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.aggregator.Start())
	t.Cleanup(f.aggregator.Stop)
}

func (f *fixture) addProduct(t *testing.T, name, sku, price string, stock, reorderLevel int) catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(name, sku, decimal.RequireFromString(price))
	require.NoError(t, err)
	p.Stock = stock
	p.ReorderLevel = reorderLevel
	require.NoError(t, f.store.DispatchSync(context.Background(), state.AddProduct{Product: *p}))
	return *p
}

func (f *fixture) addCustomer(t *testing.T, name string) customer.Customer {
	t.Helper()
	c, err := customer.NewCustomer(name, "", "")
	require.NoError(t, err)
	require.NoError(t, f.store.DispatchSync(context.Background(), state.AddCustomer{Customer: *c}))
	return *c
}

// settle commits a transaction the way the checkout engine does: persist
// first, then announce it on the bus
func (f *fixture) settle(t *testing.T, txn checkout.Transaction) {
	t.Helper()
	require.NoError(t, f.store.DispatchSync(context.Background(), state.AddTransaction{Transaction: txn}))
	report := f.bus.Publish(context.Background(), shared.EventTransactionCompleted, txn, shared.PublishOptions{Source: "test"})
	require.Empty(t, report.Errors)
}

func transactionOf(p catalog.Product, customerID *uuid.UUID, quantity int, at time.Time) checkout.Transaction {
	lineTotal := p.Price.Mul(decimal.NewFromInt(int64(quantity)))
	return checkout.Transaction{
		ID:         uuid.New(),
		Number:     "TXN-TEST",
		CustomerID: customerID,
		Items: []checkout.LineItem{{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    quantity,
			UnitPrice:   p.Price,
			Total:       lineTotal,
		}},
		Subtotal:  lineTotal,
		Total:     lineTotal,
		Status:    checkout.StatusCompleted,
		Timestamp: at,
	}
}

func TestAggregator_StartComputesInitialDashboard(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "Coffee", "COF-1", "24.99", 50, 10)
	f.addProduct(t, "Tea", "TEA-1", "18.99", 0, 5)
	f.start(t)

	d := f.aggregator.Dashboard()
	assert.Equal(t, 0, d.SalesOverview.TotalTransactions)
	assert.True(t, d.SalesOverview.AverageOrderValue.IsZero())
	assert.Equal(t, 2, d.InventoryStatus.TotalProducts)
	assert.Equal(t, 1, d.InventoryStatus.OutOfStockItems)
	assert.True(t, d.InventoryStatus.TotalStockValue.Equal(decimal.RequireFromString("1249.50")))
	assert.False(t, d.LastUpdated.IsZero())
}

func TestAggregator_SettlementRefreshesSalesOverview(t *testing.T) {
	f := newFixture(t)
	coffee := f.addProduct(t, "Coffee", "COF-1", "10.00", 50, 10)
	c := f.addCustomer(t, "Alice")
	f.start(t)

	f.settle(t, transactionOf(coffee, &c.ID, 2, time.Now()))
	f.settle(t, transactionOf(coffee, nil, 1, time.Now()))

	d := f.aggregator.Dashboard()
	assert.Equal(t, 2, d.SalesOverview.TotalTransactions)
	assert.True(t, d.SalesOverview.TotalRevenue.Equal(decimal.RequireFromString("30.00")))
	assert.True(t, d.SalesOverview.AverageOrderValue.Equal(decimal.RequireFromString("15.00")))
	assert.Equal(t, 3, d.SalesOverview.TotalItems)

	assert.Equal(t, 1, d.CustomerInsights.TotalCustomers)
	assert.Equal(t, 1, d.CustomerInsights.CustomerTransactions)
	assert.Equal(t, 20, d.CustomerInsights.LoyaltyPointsAwarded)
}

func TestAggregator_TopProductsRankedByRevenue(t *testing.T) {
	f := newFixture(t)
	coffee := f.addProduct(t, "Coffee", "COF-1", "10.00", 50, 10)
	tea := f.addProduct(t, "Tea", "TEA-1", "4.00", 50, 10)
	f.start(t)

	// tea sells more units, coffee earns more revenue
	f.settle(t, transactionOf(tea, nil, 5, time.Now()))
	f.settle(t, transactionOf(coffee, nil, 3, time.Now()))

	d := f.aggregator.Dashboard()
	require.Len(t, d.TopProducts, 2)
	assert.Equal(t, "Coffee", d.TopProducts[0].ProductName)
	assert.True(t, d.TopProducts[0].Revenue.Equal(decimal.RequireFromString("30.00")))
	assert.Equal(t, "Tea", d.TopProducts[1].ProductName)
	assert.Equal(t, 5, d.TopProducts[1].Quantity)
}

func TestAggregator_RecentTransactionsNewestFirst(t *testing.T) {
	f := newFixture(t)
	coffee := f.addProduct(t, "Coffee", "COF-1", "10.00", 50, 10)
	f.start(t)

	older := transactionOf(coffee, nil, 1, time.Now().Add(-time.Hour))
	newer := transactionOf(coffee, nil, 2, time.Now())
	f.settle(t, older)
	f.settle(t, newer)

	d := f.aggregator.Dashboard()
	require.Len(t, d.RecentTransactions, 2)
	assert.Equal(t, newer.ID, d.RecentTransactions[0].ID)
	assert.Equal(t, older.ID, d.RecentTransactions[1].ID)
}

func TestAggregator_InventoryEventRefreshesStockStatus(t *testing.T) {
	f := newFixture(t)
	coffee := f.addProduct(t, "Coffee", "COF-1", "10.00", 12, 10)
	f.start(t)

	require.NoError(t, f.store.DispatchSync(context.Background(), state.AdjustProductStock{ID: coffee.ID, Delta: -3}))
	report := f.bus.Publish(context.Background(), shared.EventInventoryUpdated, catalog.InventoryUpdatedPayload{
		ProductID: coffee.ID,
		NewStock:  9,
		Reason:    "sale",
	}, shared.PublishOptions{Source: "test"})
	require.Empty(t, report.Errors)

	d := f.aggregator.Dashboard()
	assert.Equal(t, 1, d.InventoryStatus.LowStockItems)
	assert.True(t, d.InventoryStatus.TotalStockValue.Equal(decimal.RequireFromString("90.00")))
}

func TestAggregator_RedeliveryDoesNotChangeDashboard(t *testing.T) {
	f := newFixture(t)
	coffee := f.addProduct(t, "Coffee", "COF-1", "10.00", 50, 10)
	f.start(t)

	txn := transactionOf(coffee, nil, 2, time.Now())
	f.settle(t, txn)
	first := f.aggregator.Dashboard()

	report := f.bus.Publish(context.Background(), shared.EventTransactionCompleted, txn, shared.PublishOptions{Source: "test"})
	require.Empty(t, report.Errors)

	second := f.aggregator.Dashboard()
	assert.Equal(t, first.SalesOverview, second.SalesOverview)
	assert.Equal(t, first.LastUpdated, second.LastUpdated)
}

func TestAggregator_DashboardReturnsCopies(t *testing.T) {
	f := newFixture(t)
	coffee := f.addProduct(t, "Coffee", "COF-1", "10.00", 50, 10)
	f.start(t)

	f.settle(t, transactionOf(coffee, nil, 1, time.Now()))

	d := f.aggregator.Dashboard()
	require.Len(t, d.TopProducts, 1)
	d.TopProducts[0].ProductName = "Hacked"

	assert.Equal(t, "Coffee", f.aggregator.Dashboard().TopProducts[0].ProductName)
}
