package persistence

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pos/backend/internal/infrastructure/logger"
)

// Database holds the local database connection backing the document store
type Database struct {
	DB *gorm.DB
}

// NewDatabase opens (or creates) the local sqlite database at path and
// migrates the document schema. Use ":memory:" for an ephemeral database.
func NewDatabase(path string, zapLogger *zap.Logger) (*Database, error) {
	gl := logger.NewStoreLogger(zapLogger, gormlogger.Warn)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                 gl,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}

	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate document schema: %w", err)
	}

	return &Database{DB: db}, nil
}

// Close closes the underlying database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}
