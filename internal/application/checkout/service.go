package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/application/state"
	"github.com/pos/backend/internal/domain/checkout"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/observability"
)

const sourceCheckout = "checkout"

// Status is the checkout session state
type Status string

const (
	StatusEmpty    Status = "empty"
	StatusBuilding Status = "building"
	StatusSettling Status = "settling"
)

// Service drives one checkout session: cart building, discounting, totals and
// settlement. It never touches stock or loyalty points itself; those react to
// the transaction:completed event it publishes.
type Service struct {
	mu       sync.Mutex
	cart     checkout.Cart
	customer *uuid.UUID
	settling bool

	store     *state.Store
	bus       shared.EventPublisher
	processor PaymentProcessor
	cashierID string
	logger    *zap.Logger
}

// NewService creates a checkout service for one terminal
func NewService(store *state.Store, bus shared.EventPublisher, processor PaymentProcessor, cashierID string, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		bus:       bus,
		processor: processor,
		cashierID: cashierID,
		logger:    logger.Named("checkout"),
	}
}

// Status reports the session state
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.settling:
		return StatusSettling
	case s.cart.IsEmpty():
		return StatusEmpty
	default:
		return StatusBuilding
	}
}

// AddLine adds one unit of the product to the cart
func (s *Service) AddLine(productID uuid.UUID) error {
	product, ok := s.store.Product(productID)
	if !ok {
		return shared.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settling {
		return shared.ErrAlreadyProcessing
	}
	return s.cart.AddProduct(&product)
}

// UpdateLine sets a line's quantity; zero or less removes the line
func (s *Service) UpdateLine(productID uuid.UUID, quantity int) error {
	product, ok := s.store.Product(productID)
	if !ok {
		return shared.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settling {
		return shared.ErrAlreadyProcessing
	}
	return s.cart.UpdateQuantity(productID, quantity, product.Stock)
}

// RemoveLine removes the product's line from the cart
func (s *Service) RemoveLine(productID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settling {
		return shared.ErrAlreadyProcessing
	}
	if !s.cart.RemoveLine(productID) {
		return shared.ErrNotFound
	}
	return nil
}

// SetLineDiscount sets the per-line discount amount
func (s *Service) SetLineDiscount(productID uuid.UUID, discount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settling {
		return shared.ErrAlreadyProcessing
	}
	return s.cart.SetLineDiscount(productID, discount)
}

// ApplyDiscount adds a cart-wide discount
func (s *Service) ApplyDiscount(d checkout.Discount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settling {
		return shared.ErrAlreadyProcessing
	}
	s.cart.AddDiscount(d)
	return nil
}

// RemoveDiscount removes a cart-wide discount by id
func (s *Service) RemoveDiscount(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settling {
		return shared.ErrAlreadyProcessing
	}
	if !s.cart.RemoveDiscount(id) {
		return shared.ErrNotFound
	}
	return nil
}

// SelectCustomer attaches a customer to the session for loyalty awarding
func (s *Service) SelectCustomer(id uuid.UUID) error {
	if _, ok := s.store.Customer(id); !ok {
		return shared.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settling {
		return shared.ErrAlreadyProcessing
	}
	s.customer = &id
	return nil
}

// ClearCustomer detaches the selected customer
func (s *Service) ClearCustomer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customer = nil
}

// SelectedCustomer returns the attached customer id, if any
func (s *Service) SelectedCustomer() *uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.customer == nil {
		return nil
	}
	id := *s.customer
	return &id
}

// Cart returns a copy of the current cart
func (s *Service) Cart() checkout.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Totals derives the current totals from the cart and the tax settings in
// force. The same cart and settings always produce the same totals.
func (s *Service) Totals() checkout.Totals {
	s.mu.Lock()
	cart := s.cart.Clone()
	s.mu.Unlock()
	return checkout.ComputeTotals(cart, s.store.Settings().Tax)
}

// ClearCart abandons the session, dropping lines, discounts and the customer
func (s *Service) ClearCart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settling {
		return shared.ErrAlreadyProcessing
	}
	s.cart.Clear()
	s.customer = nil
	return nil
}

// Settle commits the cart as a transaction. On success the transaction is
// persisted, transaction:completed is published, the cart and customer are
// cleared, and receipt data is returned. On any failure the cart is preserved
// so the cashier can retry.
//
// Exactly one settlement runs at a time; a concurrent call fails with
// ALREADY_PROCESSING. Cancellation of ctx is honored only up to the persist
// call; once the transaction is stored the settlement is irrevocable.
func (s *Service) Settle(ctx context.Context, paymentMethod string) (*checkout.Receipt, error) {
	s.mu.Lock()
	if s.settling {
		s.mu.Unlock()
		observability.SettlementsFailed.WithLabelValues("ALREADY_PROCESSING").Inc()
		return nil, shared.ErrAlreadyProcessing
	}
	s.settling = true
	cart := s.cart.Clone()
	customerID := s.customer
	s.mu.Unlock()

	receipt, err := s.settle(ctx, cart, customerID, paymentMethod)

	s.mu.Lock()
	s.settling = false
	if err == nil {
		s.cart.Clear()
		s.customer = nil
	}
	s.mu.Unlock()

	if err != nil {
		observability.SettlementsFailed.WithLabelValues(errorCode(err)).Inc()
		return nil, err
	}
	observability.TransactionsSettled.Inc()
	return receipt, nil
}

func (s *Service) settle(ctx context.Context, cart checkout.Cart, customerID *uuid.UUID, paymentMethod string) (*checkout.Receipt, error) {
	cfg := s.store.Settings()
	totals := checkout.ComputeTotals(cart, cfg.Tax)

	txn, err := checkout.NewTransaction(cart, totals, customerID, paymentMethod, s.cashierID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := s.processor.Process(ctx, totals.Total, paymentMethod); err != nil {
		s.logger.Warn("payment processing failed",
			zap.String("transaction", txn.Number),
			zap.Error(err),
		)
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Payment was not completed: "+err.Error())
	}
	observability.PaymentProcessingLatency.Observe(time.Since(start).Seconds())

	// Commit point. After this write succeeds the sale is irrevocable and
	// cancellation is no longer honored.
	if err := s.store.DispatchSync(ctx, state.AddTransaction{Transaction: *txn}); err != nil {
		s.logger.Error("failed to persist transaction",
			zap.String("transaction", txn.Number),
			zap.Error(err),
		)
		return nil, err
	}

	report := s.bus.Publish(context.WithoutCancel(ctx), shared.EventTransactionCompleted, *txn, shared.PublishOptions{Source: sourceCheckout})
	if len(report.Errors) > 0 {
		// Consumer failures do not undo a settled sale
		s.logger.Warn("transaction:completed had failing subscribers",
			zap.String("transaction", txn.Number),
			zap.Int("errors", len(report.Errors)),
		)
	}

	s.logger.Info("transaction settled",
		zap.String("transaction", txn.Number),
		zap.String("total", totals.Total.String()),
		zap.String("payment_method", paymentMethod),
	)

	receipt := &checkout.Receipt{
		Transaction: txn,
		Company:     cfg.Company,
		FooterText:  cfg.Receipt.FooterText,
		PrintedAt:   time.Now(),
	}
	if customerID != nil {
		if c, ok := s.store.Customer(*customerID); ok {
			receipt.Customer = &c
		}
	}
	return receipt, nil
}

func errorCode(err error) string {
	var derr *shared.DomainError
	if errors.As(err, &derr) {
		return derr.Code
	}
	return "UNKNOWN"
}
