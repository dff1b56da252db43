package checkout

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pos/backend/internal/domain/customer"
	"github.com/pos/backend/internal/domain/settings"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of a recorded transaction.
// Completed is the only terminal status modeled.
type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "completed"
)

// LineItem is an immutable snapshot of one sold cart line. Product name and
// unit price are captured at settlement time so later catalog edits cannot
// rewrite history.
type LineItem struct {
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

// Transaction is the immutable record of a settled cart. It is persisted once
// and never mutated afterwards; its stored totals are recomputable from the
// items and the tax settings in force at settlement.
type Transaction struct {
	ID             uuid.UUID         `json:"id"`
	Number         string            `json:"transactionNumber"`
	CustomerID     *uuid.UUID        `json:"customerId,omitempty"`
	Items          []LineItem        `json:"items"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	TaxAmount      decimal.Decimal   `json:"taxAmount"`
	DiscountAmount decimal.Decimal   `json:"discountAmount"`
	Total          decimal.Decimal   `json:"total"`
	PaymentMethod  string            `json:"paymentMethod"`
	Status         TransactionStatus `json:"status"`
	CashierID      string            `json:"cashierId"`
	Timestamp      time.Time         `json:"timestamp"`
	ReceiptNumber  string            `json:"receiptNumber"`
}

// NewTransaction builds the settlement snapshot for a cart. It enforces the
// settlement preconditions: at least one line and a positive total.
func NewTransaction(cart Cart, totals Totals, customerID *uuid.UUID, paymentMethod, cashierID string) (*Transaction, error) {
	if cart.IsEmpty() {
		return nil, shared.ErrEmptyCart
	}
	if !totals.Total.IsPositive() {
		return nil, shared.ErrInvalidTotal
	}
	if paymentMethod == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Payment method is required")
	}

	now := time.Now()
	items := make([]LineItem, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		items = append(items, LineItem{
			ProductID:   line.ProductID,
			ProductName: line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Discount:    line.Discount,
			Total:       line.Total(),
		})
	}

	return &Transaction{
		ID:             uuid.New(),
		Number:         fmt.Sprintf("TXN-%d", now.UnixMilli()),
		CustomerID:     customerID,
		Items:          items,
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.TaxAmount,
		DiscountAmount: totals.DiscountAmount,
		Total:          totals.Total,
		PaymentMethod:  paymentMethod,
		Status:         StatusCompleted,
		CashierID:      cashierID,
		Timestamp:      now,
		ReceiptNumber:  fmt.Sprintf("RCP-%d", now.UnixMilli()),
	}, nil
}

// Receipt is the display payload produced by a successful settlement
type Receipt struct {
	Transaction *Transaction              `json:"transaction"`
	Customer    *customer.Customer        `json:"customer,omitempty"`
	Company     settings.CompanySettings  `json:"company"`
	FooterText  string                    `json:"footerText"`
	PrintedAt   time.Time                 `json:"printedAt"`
}
