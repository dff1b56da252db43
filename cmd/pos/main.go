package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	checkoutapp "github.com/pos/backend/internal/application/checkout"
	inventoryapp "github.com/pos/backend/internal/application/inventory"
	loyaltyapp "github.com/pos/backend/internal/application/loyalty"
	reportingapp "github.com/pos/backend/internal/application/reporting"
	"github.com/pos/backend/internal/application/state"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/infrastructure/config"
	"github.com/pos/backend/internal/infrastructure/event"
	"github.com/pos/backend/internal/infrastructure/logger"
	"github.com/pos/backend/internal/infrastructure/persistence"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting POS backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("store", cfg.Store.Path),
	)

	db, err := persistence.NewDatabase(cfg.Store.Path, log)
	if err != nil {
		log.Fatal("Failed to open local store", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	docStore := persistence.NewDocumentStore(db)
	bus := event.NewBus(log, cfg.Event.HistorySize)

	businessState := state.NewStore(docStore, bus, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := businessState.Load(ctx); err != nil {
		log.Fatal("Failed to load business state", zap.Error(err))
	}

	stockWatcher := inventoryapp.NewStockWatcher(businessState, bus, log)
	if err := stockWatcher.Start(); err != nil {
		log.Fatal("Failed to start stock watcher", zap.Error(err))
	}
	defer stockWatcher.Stop()

	loyaltyWatcher := loyaltyapp.NewWatcher(businessState, bus, log)
	if err := loyaltyWatcher.Start(); err != nil {
		log.Fatal("Failed to start loyalty watcher", zap.Error(err))
	}
	defer loyaltyWatcher.Stop()

	aggregator := reportingapp.NewAggregator(businessState, bus, log)
	if err := aggregator.Start(); err != nil {
		log.Fatal("Failed to start reporting aggregator", zap.Error(err))
	}
	defer aggregator.Stop()

	processor := checkoutapp.SimulatedProcessor{Delay: cfg.Payment.ProcessingDelay}
	terminal := checkoutapp.NewService(businessState, bus, processor, "terminal-1", log)

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, log)
	}

	if err := runDemoSession(ctx, terminal, businessState, aggregator, bus, log); err != nil {
		log.Error("Demo session failed", zap.Error(err))
		os.Exit(1)
	}

	businessState.Flush()
	log.Info("Shutdown complete")
}

func serveMetrics(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("Metrics endpoint listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("Metrics endpoint stopped", zap.Error(err))
	}
}

// runDemoSession rings up one sale against the demo catalog so a fresh
// checkout of the repo produces visible end-to-end behavior.
func runDemoSession(ctx context.Context, terminal *checkoutapp.Service, businessState *state.Store, aggregator *reportingapp.Aggregator, bus shared.EventBus, log *zap.Logger) error {
	products := businessState.Products()
	if len(products) == 0 {
		log.Warn("No products available, skipping demo session")
		return nil
	}

	if err := terminal.AddLine(products[0].ID); err != nil {
		return err
	}
	totals := terminal.Totals()
	log.Info("Cart built",
		zap.String("subtotal", totals.Subtotal.String()),
		zap.String("tax", totals.TaxAmount.String()),
		zap.String("total", totals.Total.String()),
	)

	receipt, err := terminal.Settle(ctx, "cash")
	if err != nil {
		return err
	}

	log.Info("Sale settled",
		zap.String("transaction", receipt.Transaction.Number),
		zap.String("receipt", receipt.Transaction.ReceiptNumber),
		zap.String("total", receipt.Transaction.Total.String()),
	)

	dashboard := aggregator.Dashboard()
	log.Info("Dashboard",
		zap.Int("transactions", dashboard.SalesOverview.TotalTransactions),
		zap.String("revenue", dashboard.SalesOverview.TotalRevenue.String()),
		zap.String("average_order", dashboard.SalesOverview.AverageOrderValue.String()),
		zap.Int("low_stock_items", dashboard.InventoryStatus.LowStockItems),
	)

	for _, evt := range bus.History("", 10) {
		log.Info("Recent event",
			zap.String("name", evt.Name),
			zap.String("source", evt.Source),
			zap.Time("at", evt.Timestamp),
		)
	}
	return nil
}
