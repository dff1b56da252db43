package customer

import (
	"time"

	"github.com/pos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Tier classifies a customer purely by accumulated loyalty points.
// It is always derived; no code path stores a tier inconsistent with points.
type Tier string

const (
	TierBronze Tier = "Bronze"
	TierSilver Tier = "Silver"
	TierGold   Tier = "Gold"
	TierVIP    Tier = "VIP"
)

// Tier breakpoints in points
const (
	silverThreshold = 200
	goldThreshold   = 500
	vipThreshold    = 1000
)

// TierForPoints returns the tier for a point balance
func TierForPoints(points int) Tier {
	switch {
	case points >= vipThreshold:
		return TierVIP
	case points >= goldThreshold:
		return TierGold
	case points >= silverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// Customer represents a loyalty program member
type Customer struct {
	shared.BaseEntity
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Phone      string          `json:"phone"`
	Points     int             `json:"points"`
	Tier       Tier            `json:"tier"`
	TotalSpent decimal.Decimal `json:"totalSpent"`
	OrderCount int             `json:"orderCount"`
	LastVisit  *time.Time      `json:"lastVisit,omitempty"`
}

// NewCustomer creates a new customer at the Bronze tier
func NewCustomer(name, email, phone string) (*Customer, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	}

	return &Customer{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Email:      email,
		Phone:      phone,
		Tier:       TierBronze,
		TotalSpent: decimal.Zero,
	}, nil
}

// AddPoints applies a signed point delta. The balance is clamped at zero and
// the tier recomputed, so demotion below a breakpoint happens here too.
func (c *Customer) AddPoints(delta int) int {
	next := c.Points + delta
	if next < 0 {
		next = 0
	}
	c.Points = next
	c.Tier = TierForPoints(next)
	c.Touch()
	return c.Points
}

// RedeemPoints removes points from the balance. Redeeming more than the
// customer holds is rejected.
func (c *Customer) RedeemPoints(points int) error {
	if points <= 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "Points to redeem must be positive")
	}
	if points > c.Points {
		return shared.ErrInsufficientPoints
	}

	c.AddPoints(-points)
	return nil
}

// RecordPurchase updates cumulative purchase statistics after a settlement
func (c *Customer) RecordPurchase(total decimal.Decimal, at time.Time) {
	c.TotalSpent = c.TotalSpent.Add(total)
	c.OrderCount++
	c.LastVisit = &at
	c.Touch()
}

// Update updates the customer's contact information
func (c *Customer) Update(name, email, phone string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	}

	c.Name = name
	c.Email = email
	c.Phone = phone
	c.Touch()

	return nil
}
