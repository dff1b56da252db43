package shared

import (
	"context"
	"encoding/json"
	"time"
)

// Collection names understood by the persistent store
const (
	CollectionProducts     = "products"
	CollectionCustomers    = "customers"
	CollectionTransactions = "transactions"
	CollectionUsers        = "users"
	CollectionSettings     = "settings"
)

// Record is an opaque document stored under a collection. The core treats the
// payload as a JSON blob; interpretation belongs to the caller.
type Record struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Snapshot is the versioned export format of the whole store
type Snapshot struct {
	Version   int                          `json:"version"`
	Timestamp time.Time                    `json:"timestamp"`
	Data      map[string][]json.RawMessage `json:"data"`
}

// Store is the durable key-value persistence boundary. Calls are independent:
// no transactionality is guaranteed across two sequential calls, and every
// failure is surfaced to the caller.
type Store interface {
	Add(ctx context.Context, collection string, record Record) error
	Get(ctx context.Context, collection, id string) (Record, error)
	// GetAll returns every record in the collection; limit <= 0 means no limit.
	GetAll(ctx context.Context, collection string, limit int) ([]Record, error)
	Update(ctx context.Context, collection string, record Record) error
	Delete(ctx context.Context, collection, id string) error
	BulkUpdate(ctx context.Context, collection string, records []Record) error
	// Search matches a top-level JSON field. With exact=false the match is a
	// case-insensitive substring match.
	Search(ctx context.Context, collection, field, value string, exact bool) ([]Record, error)
	// ExportAll produces a versioned snapshot of all collections.
	ExportAll(ctx context.Context) (*Snapshot, error)
	// ImportAll replaces the store contents with the snapshot. The replace is
	// atomic from the caller's perspective.
	ImportAll(ctx context.Context, snapshot *Snapshot) error
}
