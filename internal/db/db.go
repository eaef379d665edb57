package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stargazer/internal/models"
)

const (
	// AppDir is the directory name for stargazer data under the user config dir
	AppDir = "stargazer"
	// DBFileName is the database filename within the data directory
	DBFileName = "db.sqlite"
	// DBPathEnv overrides the database location
	DBPathEnv = "STARGAZER_DB_PATH"
)

// ErrNotInitialized is returned when no database exists at the expected path
var ErrNotInitialized = errors.New("stargazer not initialized. Run 'stg init' first")

var (
	db   *gorm.DB
	dbMu sync.RWMutex
)

// Open opens the database at dbPath and runs migrations without touching the
// process-wide handle.
func Open(dbPath string) (*gorm.DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	// Foreign keys are a per-connection setting in SQLite, so they go in the
	// DSN to apply to every pooled connection.
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	database, err := gorm.Open(sqlite.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports multiple readers but only one writer.
	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)

	if err := database.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := runMigrations(database); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database, nil
}

// InitDB opens the database and installs it as the process-wide handle
func InitDB(dbPath string) (*gorm.DB, error) {
	database, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	dbMu.Lock()
	db = database
	dbMu.Unlock()
	return database, nil
}

// runMigrations runs all database migrations
func runMigrations(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.Repository{},
		&models.Tag{},
		&models.RepositoryTag{},
		&models.SearchPreset{},
		&models.SyncMetadata{},
		&models.Config{},
	); err != nil {
		return err
	}
	return backfillSearchText(database)
}

// backfillSearchText fills search_text for rows cached before the column
// existed, so they are searchable without waiting for the next sync.
func backfillSearchText(database *gorm.DB) error {
	var batch []models.Repository
	return database.
		Where("search_text IS NULL OR search_text = ''").
		FindInBatches(&batch, 500, func(_ *gorm.DB, _ int) error {
			for i := range batch {
				err := database.Model(&models.Repository{}).
					Where("id = ?", batch[i].ID).
					UpdateColumn("search_text", batch[i].SearchIndex()).Error
				if err != nil {
					return fmt.Errorf("failed to index repository %d: %w", batch[i].ID, err)
				}
			}
			return nil
		}).Error
}

// GetDB returns the current database connection
func GetDB() *gorm.DB {
	dbMu.RLock()
	defer dbMu.RUnlock()
	return db
}

// SetDB sets the database connection (used for testing)
func SetDB(database *gorm.DB) {
	dbMu.Lock()
	defer dbMu.Unlock()
	db = database
}

// CloseDB closes the database connection
func CloseDB() error {
	dbMu.Lock()
	defer dbMu.Unlock()

	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	err = sqlDB.Close()
	db = nil
	return err
}

// DataDir returns the directory holding the stargazer database
func DataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return "", fmt.Errorf("failed to locate config directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, AppDir), nil
}

// GetDefaultDBPath returns the database path, honoring STARGAZER_DB_PATH
func GetDefaultDBPath() (string, error) {
	if p := os.Getenv(DBPathEnv); p != "" {
		return p, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DBFileName), nil
}

// EnsureInitialized opens the default database if no handle is installed yet
func EnsureInitialized() error {
	dbMu.RLock()
	isNil := db == nil
	dbMu.RUnlock()

	if isNil {
		dbPath, err := GetDefaultDBPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return ErrNotInitialized
		}
		_, err = InitDB(dbPath)
		return err
	}
	return nil
}

// SetConfig sets a configuration value
func SetConfig(key, value string) error {
	config := models.Config{Key: key, Value: value}
	return GetDB().Save(&config).Error
}

// GetConfig gets a configuration value
func GetConfig(key string) (string, error) {
	var config models.Config
	err := GetDB().Where("key = ?", key).First(&config).Error
	if err != nil {
		return "", err
	}
	return config.Value, nil
}
