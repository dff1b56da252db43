package checkout

import (
	"github.com/google/uuid"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DiscountType distinguishes percentage-of-subtotal from flat-amount discounts
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFlat       DiscountType = "flat"
)

// Discount applies cart-wide at checkout
type Discount struct {
	ID    uuid.UUID       `json:"id"`
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
	Label string          `json:"label,omitempty"`
}

// NewPercentageDiscount creates a percentage-of-subtotal discount (0-100)
func NewPercentageDiscount(value decimal.Decimal, label string) (Discount, error) {
	if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(100)) {
		return Discount{}, shared.NewDomainError("VALIDATION_ERROR", "Percentage discount must be between 0 and 100")
	}
	return Discount{ID: uuid.New(), Type: DiscountPercentage, Value: value, Label: label}, nil
}

// NewFlatDiscount creates a flat-amount discount
func NewFlatDiscount(value decimal.Decimal, label string) (Discount, error) {
	if value.IsNegative() {
		return Discount{}, shared.NewDomainError("VALIDATION_ERROR", "Flat discount cannot be negative")
	}
	return Discount{ID: uuid.New(), Type: DiscountFlat, Value: value, Label: label}, nil
}

// Amount returns the monetary value of this discount against a subtotal
func (d Discount) Amount(subtotal decimal.Decimal) decimal.Decimal {
	if d.Type == DiscountPercentage {
		return subtotal.Mul(d.Value).Div(decimal.NewFromInt(100))
	}
	return d.Value
}
