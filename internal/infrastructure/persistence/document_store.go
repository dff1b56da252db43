package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pos/backend/internal/domain/shared"
)

// snapshotVersion is bumped when the export format changes shape
const snapshotVersion = 1

// documentRow is the storage schema: one JSON document per record, keyed by
// (collection, record id).
type documentRow struct {
	Collection string `gorm:"primaryKey;type:varchar(50)"`
	RecordID   string `gorm:"primaryKey;type:varchar(100)"`
	Data       []byte `gorm:"type:blob;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the table name for GORM
func (documentRow) TableName() string {
	return "documents"
}

// DocumentStore implements the shared.Store contract over a local sqlite
// document table. Calls are independent; there is no transactionality across
// two calls, matching the contract the core assumes.
type DocumentStore struct {
	db *gorm.DB
}

// NewDocumentStore creates a store over an open database
func NewDocumentStore(db *Database) *DocumentStore {
	return &DocumentStore{db: db.DB}
}

// Add inserts a new record; an existing id in the collection is a conflict
func (s *DocumentStore) Add(ctx context.Context, collection string, record shared.Record) error {
	if err := validateKey(collection, record.ID); err != nil {
		return err
	}

	row := documentRow{Collection: collection, RecordID: record.ID, Data: record.Data}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("add %s/%s: %w", collection, record.ID, err)
	}
	return nil
}

// Get fetches one record by id
func (s *DocumentStore) Get(ctx context.Context, collection, id string) (shared.Record, error) {
	if err := validateKey(collection, id); err != nil {
		return shared.Record{}, err
	}

	var row documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND record_id = ?", collection, id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.Record{}, shared.ErrNotFound
		}
		return shared.Record{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return shared.Record{ID: row.RecordID, Data: row.Data}, nil
}

// GetAll returns the records of a collection; limit <= 0 returns everything
func (s *DocumentStore) GetAll(ctx context.Context, collection string, limit int) ([]shared.Record, error) {
	if collection == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Collection name is required")
	}

	q := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []documentRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("get all %s: %w", collection, err)
	}
	return toRecords(rows), nil
}

// Update inserts or replaces a record
func (s *DocumentStore) Update(ctx context.Context, collection string, record shared.Record) error {
	if err := validateKey(collection, record.ID); err != nil {
		return err
	}

	row := documentRow{Collection: collection, RecordID: record.ID, Data: record.Data}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "record_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, record.ID, err)
	}
	return nil
}

// Delete removes a record by id; deleting a missing record is not an error
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).
		Where("collection = ? AND record_id = ?", collection, id).
		Delete(&documentRow{}).Error
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// BulkUpdate upserts a batch of records in one statement
func (s *DocumentStore) BulkUpdate(ctx context.Context, collection string, records []shared.Record) error {
	if collection == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Collection name is required")
	}
	if len(records) == 0 {
		return nil
	}

	rows := make([]documentRow, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			return shared.NewDomainError("VALIDATION_ERROR", "Record id is required")
		}
		rows = append(rows, documentRow{Collection: collection, RecordID: r.ID, Data: r.Data})
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "record_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("bulk update %s: %w", collection, err)
	}
	return nil
}

// Search matches a top-level JSON field of each document. Records whose
// payload is not a JSON object, or that lack the field, never match.
func (s *DocumentStore) Search(ctx context.Context, collection, field, value string, exact bool) ([]shared.Record, error) {
	if collection == "" || field == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Collection and field are required")
	}

	rows, err := s.GetAll(ctx, collection, 0)
	if err != nil {
		return nil, err
	}

	matched := make([]shared.Record, 0)
	for _, rec := range rows {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(rec.Data, &doc); err != nil {
			continue
		}
		raw, ok := doc[field]
		if !ok {
			continue
		}
		if fieldMatches(raw, value, exact) {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// ExportAll produces a versioned snapshot of every collection
func (s *DocumentStore) ExportAll(ctx context.Context) (*shared.Snapshot, error) {
	var rows []documentRow
	if err := s.db.WithContext(ctx).Order("collection ASC, created_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	snapshot := &shared.Snapshot{
		Version:   snapshotVersion,
		Timestamp: time.Now(),
		Data:      make(map[string][]json.RawMessage),
	}
	for _, row := range rows {
		snapshot.Data[row.Collection] = append(snapshot.Data[row.Collection], json.RawMessage(row.Data))
	}
	return snapshot, nil
}

// ImportAll replaces the store contents with the snapshot. The replace runs
// in a single transaction so the caller observes it as atomic.
func (s *DocumentStore) ImportAll(ctx context.Context, snapshot *shared.Snapshot) error {
	if snapshot == nil || snapshot.Data == nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Invalid backup data format")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&documentRow{}).Error; err != nil {
			return err
		}
		for collection, docs := range snapshot.Data {
			for _, doc := range docs {
				id, err := recordID(doc)
				if err != nil {
					return fmt.Errorf("collection %s: %w", collection, err)
				}
				row := documentRow{Collection: collection, RecordID: id, Data: doc}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	return nil
}

func toRecords(rows []documentRow) []shared.Record {
	records := make([]shared.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, shared.Record{ID: row.RecordID, Data: row.Data})
	}
	return records
}

// recordID extracts the id (or key, for settings documents) field from a raw
// document during import
func recordID(doc json.RawMessage) (string, error) {
	var probe struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	if err := json.Unmarshal(doc, &probe); err != nil {
		return "", fmt.Errorf("document is not a JSON object: %w", err)
	}
	if probe.ID != "" {
		return probe.ID, nil
	}
	if probe.Key != "" {
		return probe.Key, nil
	}
	return "", errors.New("document has neither id nor key field")
}

func fieldMatches(raw json.RawMessage, value string, exact bool) bool {
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		// Non-string fields are compared against their JSON encoding
		str = string(raw)
	}
	if exact {
		return str == value
	}
	return strings.Contains(strings.ToLower(str), strings.ToLower(value))
}

func validateKey(collection, id string) error {
	if collection == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Collection name is required")
	}
	if id == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Record id is required")
	}
	return nil
}

// Ensure DocumentStore implements the store contract
var _ shared.Store = (*DocumentStore)(nil)
