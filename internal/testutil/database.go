package testutil

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"stargazer/internal/db"
)

// NewTestDB opens a migrated SQLite database in a per-test temp directory.
// A file is used rather than :memory: so every pooled connection sees the
// same data. The database is closed when the test completes.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return database
}
