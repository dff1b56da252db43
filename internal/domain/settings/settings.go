package settings

import (
	"github.com/shopspring/decimal"
)

// Settings holds the runtime-mutable business configuration. It is owned by
// the business state store and persisted as a single keyed document.
type Settings struct {
	Company CompanySettings `json:"company"`
	Tax     TaxSettings     `json:"tax"`
	Receipt ReceiptSettings `json:"receipt"`
	Loyalty LoyaltySettings `json:"loyalty"`
}

// CompanySettings describe the business for receipts and exports
type CompanySettings struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	TaxID    string `json:"taxId"`
	Currency string `json:"currency"`
	Timezone string `json:"timezone"`
}

// TaxSettings control tax computation at checkout
type TaxSettings struct {
	Enabled bool            `json:"enabled"`
	Rate    decimal.Decimal `json:"rate"`
	// Inclusive marks prices as tax-inclusive for display purposes only;
	// total computation is unaffected.
	Inclusive bool `json:"inclusive"`
}

// ReceiptSettings control receipt rendering
type ReceiptSettings struct {
	HeaderText         string `json:"headerText"`
	FooterText         string `json:"footerText"`
	ShowLogo           bool   `json:"showLogo"`
	PrintAutomatically bool   `json:"printAutomatically"`
}

// LoyaltySettings control point awarding at settlement
type LoyaltySettings struct {
	Enabled         bool            `json:"enabled"`
	PointsPerDollar decimal.Decimal `json:"pointsPerDollar"`
	RewardThreshold int             `json:"rewardThreshold"`
}

// Patch is a partial settings update; nil sections are left untouched
type Patch struct {
	Company *CompanySettings `json:"company,omitempty"`
	Tax     *TaxSettings     `json:"tax,omitempty"`
	Receipt *ReceiptSettings `json:"receipt,omitempty"`
	Loyalty *LoyaltySettings `json:"loyalty,omitempty"`
}

// Merge returns a copy of s with the non-nil sections of the patch applied
func (s Settings) Merge(p Patch) Settings {
	next := s
	if p.Company != nil {
		next.Company = *p.Company
	}
	if p.Tax != nil {
		next.Tax = *p.Tax
	}
	if p.Receipt != nil {
		next.Receipt = *p.Receipt
	}
	if p.Loyalty != nil {
		next.Loyalty = *p.Loyalty
	}
	return next
}

// Default returns the out-of-the-box settings used until an operator changes
// them: 10% exclusive tax and one loyalty point per dollar.
func Default() Settings {
	return Settings{
		Company: CompanySettings{
			Name:     "Your Business",
			Currency: "USD",
			Timezone: "UTC",
		},
		Tax: TaxSettings{
			Enabled: true,
			Rate:    decimal.NewFromFloat(0.10),
		},
		Receipt: ReceiptSettings{
			FooterText: "Thank you for your business!",
			ShowLogo:   true,
		},
		Loyalty: LoyaltySettings{
			Enabled:         true,
			PointsPerDollar: decimal.NewFromInt(1),
			RewardThreshold: 100,
		},
	}
}
