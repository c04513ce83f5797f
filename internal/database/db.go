package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/appinfo"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/logger"
)

// MemoryPath opens a private in-memory database instead of a file.
const MemoryPath = ":memory:"

// Open initializes the SQLite connection with performance-tuned settings (WAL mode),
// runs schema migrations and pre-loads the registered image counters.
func Open(dbPath string) (*gorm.DB, error) {
	var dsn string
	if dbPath == MemoryPath {
		// A named shared-cache database survives the pool recycling its connection.
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	} else {
		if err := ensureDir(dbPath); err != nil {
			return nil, errors.Wrap(err, "ensuring database directory")
		}

		// WAL mode enables concurrent readers and a single writer without locking the entire file.
		// busy_timeout ensures the driver waits for the lock instead of failing immediately.
		dsn = fmt.Sprintf(
			"%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache_size=-20000&_foreign_keys=on",
			dbPath,
		)
	}

	gormConfig := &gorm.Config{
		Logger:                 gormLogger.Default.LogMode(gormLogger.Silent),
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, errors.Wrap(err, "opening database connection")
	}

	if err := configurePool(db); err != nil {
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		return nil, err
	}
	loadInitialStats(db)

	logger.LogInfo("Database initialized successfully")
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "retrieving database handle")
	}
	return sqlDB.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0750)
	}
	return nil
}

func configurePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "retrieving generic database interface")
	}

	// Limit concurrency to prevent disk I/O throttling on the single SQLite file.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)
	return nil
}

func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&Dataset{},
		&Image{},
		&AnnotationDoc{},
		&Label{},
		&Remark{},
		&AuditLog{},
		&PasswordReset{},
	); err != nil {
		return errors.Wrap(err, "schema migration")
	}

	// Raw SQL is used here to ensure idempotent index creation
	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_images_dataset_active ON images(dataset_id, is_active);",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp DESC);",
	}

	for _, idx := range indices {
		if err := db.Exec(idx).Error; err != nil {
			logger.LogWarn("Failed to create index: %v", err)
		}
	}
	return nil
}

func loadInitialStats(db *gorm.DB) {
	var count int64
	var totalSize int64

	// IFNULL is required to handle the case where the table is empty (returns 0 instead of NULL)
	row := db.Model(&Image{}).Where("is_active = ?", true).Select("count(*), IFNULL(SUM(file_size), 0)").Row()

	if err := row.Scan(&count, &totalSize); err != nil {
		logger.LogWarn("Failed to load initial stats: %v", err)
		return
	}

	appinfo.SetInitialStats(count, totalSize)
}
