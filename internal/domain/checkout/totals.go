package checkout

import (
	"github.com/pos/backend/internal/domain/settings"
	"github.com/shopspring/decimal"
)

// Totals are the derived amounts for a cart. They are a cache of a pure
// computation over (lines, discounts, tax settings) and are never a source of
// truth on their own.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	Total          decimal.Decimal `json:"total"`
}

// ComputeTotals derives totals from the cart and the tax settings in force.
// The computation is idempotent: identical inputs always produce identical
// output. Every component is floored at zero.
//
//	subtotal       = Σ(line.price*line.qty − line.discount)
//	globalDiscount = Σ percentage-of-subtotal + flat discounts
//	taxable        = subtotal − globalDiscount
//	tax            = taxable * rate   (when tax is enabled)
//	total          = subtotal − (lineDiscounts + globalDiscount) + tax
func ComputeTotals(cart Cart, tax settings.TaxSettings) Totals {
	subtotal := decimal.Zero
	lineDiscounts := decimal.Zero
	for _, line := range cart.Lines {
		subtotal = subtotal.Add(line.Total())
		lineDiscounts = lineDiscounts.Add(line.Discount)
	}

	globalDiscount := decimal.Zero
	for _, d := range cart.Discounts {
		globalDiscount = globalDiscount.Add(d.Amount(subtotal))
	}

	discountAmount := lineDiscounts.Add(globalDiscount)

	taxable := subtotal.Sub(globalDiscount)
	taxAmount := decimal.Zero
	if tax.Enabled {
		taxAmount = taxable.Mul(tax.Rate)
	}

	total := subtotal.Sub(discountAmount).Add(taxAmount)

	return Totals{
		Subtotal:       floorZero(subtotal),
		DiscountAmount: floorZero(discountAmount),
		TaxAmount:      floorZero(taxAmount),
		Total:          floorZero(total),
	}
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
