package catalog

import (
	"strings"

	"github.com/pos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product represents a sellable item in the catalog.
// Stock is owned exclusively by the business state store and mutated only
// through stock adjustments or product updates.
type Product struct {
	shared.BaseEntity
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Barcode      string          `json:"barcode"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Cost         decimal.Decimal `json:"cost"`
	Stock        int             `json:"stock"`
	ReorderLevel int             `json:"reorderLevel"`
	Active       bool            `json:"isActive"`
}

// NewProduct creates a new active product
func NewProduct(name, sku string, price decimal.Decimal) (*Product, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateSKU(sku); err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}

	return &Product{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		SKU:        strings.ToUpper(sku),
		Price:      price,
		Cost:       decimal.Zero,
		Active:     true,
	}, nil
}

// Update updates the product's basic information
func (p *Product) Update(name, category, description string) error {
	if err := validateName(name); err != nil {
		return err
	}

	p.Name = name
	p.Category = category
	p.Description = description
	p.Touch()

	return nil
}

// SetPrices sets selling price and cost
func (p *Product) SetPrices(price, cost decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if cost.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Cost cannot be negative")
	}

	p.Price = price
	p.Cost = cost
	p.Touch()

	return nil
}

// SetReorderLevel sets the stock level at which low-stock alerts fire
func (p *Product) SetReorderLevel(level int) error {
	if level < 0 {
		return shared.NewDomainError("INVALID_REORDER_LEVEL", "Reorder level cannot be negative")
	}

	p.ReorderLevel = level
	p.Touch()

	return nil
}

// AdjustStock applies a signed stock delta, clamping at zero. Driving stock
// below zero is an out-of-stock condition, not an error, so the clamped value
// is returned rather than a failure.
func (p *Product) AdjustStock(delta int) int {
	next := p.Stock + delta
	if next < 0 {
		next = 0
	}
	p.Stock = next
	p.Touch()
	return p.Stock
}

// SetStock replaces the stock level, clamping at zero
func (p *Product) SetStock(stock int) int {
	if stock < 0 {
		stock = 0
	}
	p.Stock = stock
	p.Touch()
	return p.Stock
}

// IsOutOfStock returns true when no units remain
func (p *Product) IsOutOfStock() bool {
	return p.Stock <= 0
}

// IsLowStock returns true when stock is at or below the reorder level but not
// yet exhausted
func (p *Product) IsLowStock() bool {
	return p.Stock > 0 && p.Stock <= p.ReorderLevel
}

// Activate marks the product as sellable
func (p *Product) Activate() {
	p.Active = true
	p.Touch()
}

// Deactivate removes the product from sale without deleting it
func (p *Product) Deactivate() {
	p.Active = false
	p.Touch()
}

func validateName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}

func validateSKU(sku string) error {
	if sku == "" {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if len(sku) > 50 {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot exceed 50 characters")
	}
	for _, r := range sku {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_SKU", "SKU can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}
