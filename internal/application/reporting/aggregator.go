package reporting

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/application/state"
	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/checkout"
	"github.com/pos/backend/internal/domain/customer"
	"github.com/pos/backend/internal/domain/settings"
	"github.com/pos/backend/internal/domain/shared"
)

// AggregatorPriority runs the dashboard refresh after the stock and loyalty
// consumers have applied their updates for the same transaction
const AggregatorPriority = 0

const (
	maxTopProducts        = 10
	maxRecentTransactions = 10
)

// SalesOverview summarizes the settled transaction log
type SalesOverview struct {
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	TotalTransactions int             `json:"totalTransactions"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
	TotalItems        int             `json:"totalItems"`
}

// ProductSales is one product's accumulated sales volume
type ProductSales struct {
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// CustomerInsights summarizes customer activity across the transaction log
type CustomerInsights struct {
	TotalCustomers       int `json:"totalCustomers"`
	CustomerTransactions int `json:"customerTransactions"`
	LoyaltyPointsAwarded int `json:"loyaltyPointsAwarded"`
}

// InventoryStatus summarizes the current stock position of the catalog
type InventoryStatus struct {
	TotalProducts   int             `json:"totalProducts"`
	LowStockItems   int             `json:"lowStockItems"`
	OutOfStockItems int             `json:"outOfStockItems"`
	TotalStockValue decimal.Decimal `json:"totalStockValue"`
}

// Dashboard is the derived reporting view. It is recomputed from the business
// state on every relevant event, never mutated incrementally.
type Dashboard struct {
	SalesOverview      SalesOverview          `json:"salesOverview"`
	TopProducts        []ProductSales         `json:"topProducts"`
	RecentTransactions []checkout.Transaction `json:"recentTransactions"`
	CustomerInsights   CustomerInsights       `json:"customerInsights"`
	InventoryStatus    InventoryStatus        `json:"inventoryStatus"`
	LastUpdated        time.Time              `json:"lastUpdated"`
}

// Aggregator keeps the reporting dashboard current by recomputing it whenever
// a transaction settles or stock moves. All numbers derive from the state
// store's projections, so a redelivered event can never double-count; the
// processed guard only skips the redundant recompute.
type Aggregator struct {
	store  *state.Store
	logger *zap.Logger
	bus    shared.EventBus

	mu        sync.Mutex
	dashboard Dashboard
	processed map[uuid.UUID]struct{}

	unsubscribeTxn       shared.UnsubscribeFunc
	unsubscribeInventory shared.UnsubscribeFunc
}

// NewAggregator creates the aggregator; call Start to begin consuming
func NewAggregator(store *state.Store, bus shared.EventBus, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		store:     store,
		bus:       bus,
		logger:    logger.Named("reporting"),
		processed: make(map[uuid.UUID]struct{}),
	}
}

// Start computes the initial dashboard from the loaded state and subscribes
// to the events that can change it
func (a *Aggregator) Start() error {
	a.refresh()

	unsubTxn, err := a.bus.Subscribe(shared.EventTransactionCompleted, a.handleTransaction, shared.SubscribeOptions{
		Priority: AggregatorPriority,
	})
	if err != nil {
		return err
	}
	a.unsubscribeTxn = unsubTxn

	unsubInv, err := a.bus.Subscribe(shared.EventInventoryUpdated, a.handleInventory, shared.SubscribeOptions{
		Priority: AggregatorPriority,
	})
	if err != nil {
		a.unsubscribeTxn()
		return err
	}
	a.unsubscribeInventory = unsubInv
	return nil
}

// Stop removes both subscriptions
func (a *Aggregator) Stop() {
	if a.unsubscribeTxn != nil {
		a.unsubscribeTxn()
	}
	if a.unsubscribeInventory != nil {
		a.unsubscribeInventory()
	}
}

// Dashboard returns a copy of the current dashboard
func (a *Aggregator) Dashboard() Dashboard {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := a.dashboard
	d.TopProducts = append([]ProductSales(nil), d.TopProducts...)
	d.RecentTransactions = append([]checkout.Transaction(nil), d.RecentTransactions...)
	return d
}

func (a *Aggregator) handleTransaction(ctx context.Context, e shared.Event) error {
	txn, ok := e.Payload.(checkout.Transaction)
	if !ok {
		return shared.NewDomainError("VALIDATION_ERROR", "Unexpected payload on transaction:completed")
	}
	if !a.markProcessed(txn.ID) {
		return nil
	}
	a.refresh()
	return nil
}

func (a *Aggregator) handleInventory(ctx context.Context, e shared.Event) error {
	a.refresh()
	return nil
}

func (a *Aggregator) markProcessed(id uuid.UUID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, seen := a.processed[id]; seen {
		return false
	}
	a.processed[id] = struct{}{}
	return true
}

func (a *Aggregator) refresh() {
	txns := a.store.Transactions()
	products := a.store.Products()
	customers := a.store.Customers()
	loyalty := a.store.Settings().Loyalty

	d := Dashboard{
		SalesOverview:      overviewOf(txns),
		TopProducts:        topProducts(txns),
		RecentTransactions: recentTransactions(txns),
		CustomerInsights:   insightsOf(txns, customers, loyalty),
		InventoryStatus:    statusOf(products),
		LastUpdated:        time.Now(),
	}

	a.mu.Lock()
	a.dashboard = d
	a.mu.Unlock()

	a.logger.Debug("dashboard refreshed",
		zap.Int("transactions", d.SalesOverview.TotalTransactions),
		zap.String("revenue", d.SalesOverview.TotalRevenue.String()),
	)
}

func overviewOf(txns []checkout.Transaction) SalesOverview {
	overview := SalesOverview{
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
		TotalTransactions: len(txns),
	}
	for _, txn := range txns {
		overview.TotalRevenue = overview.TotalRevenue.Add(txn.Total)
		for _, item := range txn.Items {
			overview.TotalItems += item.Quantity
		}
	}
	if len(txns) > 0 {
		overview.AverageOrderValue = overview.TotalRevenue.DivRound(decimal.NewFromInt(int64(len(txns))), 2)
	}
	return overview
}

func topProducts(txns []checkout.Transaction) []ProductSales {
	byProduct := make(map[uuid.UUID]*ProductSales)
	for _, txn := range txns {
		for _, item := range txn.Items {
			sales, ok := byProduct[item.ProductID]
			if !ok {
				sales = &ProductSales{
					ProductID:   item.ProductID,
					ProductName: item.ProductName,
					Revenue:     decimal.Zero,
				}
				byProduct[item.ProductID] = sales
			}
			sales.Quantity += item.Quantity
			sales.Revenue = sales.Revenue.Add(item.Total)
		}
	}

	ranked := make([]ProductSales, 0, len(byProduct))
	for _, sales := range byProduct {
		ranked = append(ranked, *sales)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if !ranked[i].Revenue.Equal(ranked[j].Revenue) {
			return ranked[i].Revenue.GreaterThan(ranked[j].Revenue)
		}
		return ranked[i].ProductName < ranked[j].ProductName
	})
	if len(ranked) > maxTopProducts {
		ranked = ranked[:maxTopProducts]
	}
	return ranked
}

func recentTransactions(txns []checkout.Transaction) []checkout.Transaction {
	recent := append([]checkout.Transaction(nil), txns...)
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].Timestamp.After(recent[j].Timestamp)
	})
	if len(recent) > maxRecentTransactions {
		recent = recent[:maxRecentTransactions]
	}
	return recent
}

func insightsOf(txns []checkout.Transaction, customers []customer.Customer, loyalty settings.LoyaltySettings) CustomerInsights {
	insights := CustomerInsights{TotalCustomers: len(customers)}
	for _, txn := range txns {
		if txn.CustomerID == nil {
			continue
		}
		insights.CustomerTransactions++
		insights.LoyaltyPointsAwarded += int(txn.Total.Mul(loyalty.PointsPerDollar).IntPart())
	}
	return insights
}

func statusOf(products []catalog.Product) InventoryStatus {
	status := InventoryStatus{
		TotalProducts:   len(products),
		TotalStockValue: decimal.Zero,
	}
	for i := range products {
		p := &products[i]
		switch {
		case p.IsOutOfStock():
			status.OutOfStockItems++
		case p.IsLowStock():
			status.LowStockItems++
		}
		status.TotalStockValue = status.TotalStockValue.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Stock))))
	}
	return status
}
