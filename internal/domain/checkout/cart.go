package checkout

import (
	"github.com/google/uuid"
	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CartLine is one product entry in the active cart. It exists only for the
// lifetime of the checkout session.
type CartLine struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Discount  decimal.Decimal `json:"discount"`
}

// Total returns price*quantity minus the per-line discount
func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Sub(l.Discount)
}

// Cart is the in-progress, uncommitted collection of line items
type Cart struct {
	Lines     []CartLine `json:"lines"`
	Discounts []Discount `json:"discounts"`
}

// IsEmpty returns true when the cart holds no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// AddProduct appends a new line for the product or increments an existing
// line's quantity by one. Quantity is bounded by the product's current stock.
func (c *Cart) AddProduct(product *catalog.Product) error {
	if product.IsOutOfStock() {
		return shared.ErrOutOfStock
	}

	for i := range c.Lines {
		if c.Lines[i].ProductID == product.ID {
			if c.Lines[i].Quantity+1 > product.Stock {
				return shared.ErrInsufficientStock
			}
			c.Lines[i].Quantity++
			return nil
		}
	}

	c.Lines = append(c.Lines, CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  1,
		Discount:  decimal.Zero,
	})
	return nil
}

// UpdateQuantity sets a line's quantity. A quantity of zero or less removes
// the line; a quantity above the available stock fails and leaves the line
// unchanged.
func (c *Cart) UpdateQuantity(productID uuid.UUID, quantity, availableStock int) error {
	idx := c.lineIndex(productID)
	if idx < 0 {
		return shared.ErrNotFound
	}

	if quantity <= 0 {
		c.RemoveLine(productID)
		return nil
	}
	if quantity > availableStock {
		return shared.ErrInsufficientStock
	}

	c.Lines[idx].Quantity = quantity
	return nil
}

// SetLineDiscount sets the per-line discount amount
func (c *Cart) SetLineDiscount(productID uuid.UUID, discount decimal.Decimal) error {
	idx := c.lineIndex(productID)
	if idx < 0 {
		return shared.ErrNotFound
	}
	if discount.IsNegative() {
		return shared.NewDomainError("VALIDATION_ERROR", "Line discount cannot be negative")
	}

	c.Lines[idx].Discount = discount
	return nil
}

// RemoveLine removes the line for the product, reporting whether it existed
func (c *Cart) RemoveLine(productID uuid.UUID) bool {
	idx := c.lineIndex(productID)
	if idx < 0 {
		return false
	}
	c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	return true
}

// AddDiscount adds a cart-wide discount
func (c *Cart) AddDiscount(discount Discount) {
	c.Discounts = append(c.Discounts, discount)
}

// RemoveDiscount removes a cart-wide discount by id, reporting whether it
// existed
func (c *Cart) RemoveDiscount(id uuid.UUID) bool {
	for i := range c.Discounts {
		if c.Discounts[i].ID == id {
			c.Discounts = append(c.Discounts[:i], c.Discounts[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties lines and discounts
func (c *Cart) Clear() {
	c.Lines = nil
	c.Discounts = nil
}

// Clone returns a deep copy of the cart
func (c *Cart) Clone() Cart {
	clone := Cart{}
	if len(c.Lines) > 0 {
		clone.Lines = append([]CartLine(nil), c.Lines...)
	}
	if len(c.Discounts) > 0 {
		clone.Discounts = append([]Discount(nil), c.Discounts...)
	}
	return clone
}

func (c *Cart) lineIndex(productID uuid.UUID) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}
