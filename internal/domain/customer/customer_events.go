package customer

import "github.com/google/uuid"

// PointsAwardedPayload is the payload of customer:loyalty_points_awarded events
type PointsAwardedPayload struct {
	CustomerID    uuid.UUID `json:"customerId"`
	Points        int       `json:"points"`
	TransactionID uuid.UUID `json:"transactionId"`
	NewBalance    int       `json:"newBalance"`
	Tier          Tier      `json:"tier"`
}

// PointsRedeemedPayload is the payload of customer:loyalty_points_redeemed events
type PointsRedeemedPayload struct {
	CustomerID uuid.UUID `json:"customerId"`
	Points     int       `json:"points"`
	Reward     string    `json:"reward,omitempty"`
	NewBalance int       `json:"newBalance"`
	Tier       Tier      `json:"tier"`
}

// TierChangedPayload is the payload of customer:tier_changed events
type TierChangedPayload struct {
	CustomerID uuid.UUID `json:"customerId"`
	OldTier    Tier      `json:"oldTier"`
	NewTier    Tier      `json:"newTier"`
}
