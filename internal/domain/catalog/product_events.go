package catalog

import "github.com/google/uuid"

// InventoryUpdatedPayload is the payload of inventory:updated events
type InventoryUpdatedPayload struct {
	ProductID uuid.UUID `json:"productId"`
	NewStock  int       `json:"newStock"`
	Reason    string    `json:"reason"`
}

// LowStockAlertPayload is the payload of inventory:low_stock_alert events
type LowStockAlertPayload struct {
	ProductID    uuid.UUID `json:"productId"`
	ProductName  string    `json:"productName"`
	CurrentStock int       `json:"currentStock"`
	ReorderLevel int       `json:"reorderLevel"`
}

// OutOfStockPayload is the payload of product:out_of_stock events
type OutOfStockPayload struct {
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName"`
}
