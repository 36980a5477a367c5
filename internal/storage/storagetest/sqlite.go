// Package storagetest opens throwaway sqlite databases for package tests.
package storagetest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aman-churiwal/eligibility-engine/internal/storage"
	"gorm.io/gorm/logger"
)

var seq atomic.Int64

// NewDatabase returns a migrated in-memory database private to the calling test.
func NewDatabase(t testing.TB) *storage.Database {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := storage.Open(storage.Options{
		Driver:   storage.DriverSQLite,
		DSN:      dsn,
		LogLevel: logger.Silent,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
