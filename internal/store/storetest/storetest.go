// Package storetest opens throwaway SQLite databases migrated with the
// production schema. Helpers call t.Fatalf on failure.
package storetest

import (
	"path/filepath"
	"testing"

	"github.com/gamecatalog/visibility-backend/internal/database"
	"github.com/gamecatalog/visibility-backend/internal/store"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB returns a migrated database backed by a file in t.TempDir. A single
// connection serializes writers so concurrent tests never see SQLITE_BUSY.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func OpenStore(t testing.TB) *store.GormStore {
	t.Helper()
	return store.NewGormStore(OpenDB(t))
}
