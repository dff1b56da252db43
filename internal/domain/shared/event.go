package shared

import (
	"time"

	"github.com/google/uuid"
)

// Event names published on the bus. The bus itself accepts any name so new
// kinds can be added without touching dispatch code; consumers match on these
// constants rather than bare strings.
const (
	EventTransactionCompleted = "transaction:completed"

	EventInventoryUpdated       = "inventory:updated"
	EventInventoryLowStockAlert = "inventory:low_stock_alert"
	EventProductOutOfStock      = "product:out_of_stock"

	EventLoyaltyPointsAwarded  = "customer:loyalty_points_awarded"
	EventLoyaltyPointsRedeemed = "customer:loyalty_points_redeemed"
	EventCustomerTierChanged   = "customer:tier_changed"

	EventSystemError = "system:error"
)

// Event is the envelope carried through the bus. It is transient: it exists
// during dispatch and inside the bounded history buffer.
type Event struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"`
}

// NewEvent creates an event envelope with a generated ID
func NewEvent(name string, payload interface{}, source string) Event {
	if source == "" {
		source = "unknown"
	}
	return Event{
		ID:        uuid.New(),
		Name:      name,
		Payload:   payload,
		Timestamp: time.Now(),
		Source:    source,
	}
}

// SystemErrorPayload is the payload of system:error events, emitted whenever a
// background operation fails in a way its caller cannot observe directly.
type SystemErrorPayload struct {
	Op      string `json:"op"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}
