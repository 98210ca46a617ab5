// Package dbtest opens a throwaway SQLite database for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"roomchat/internal/db"

	"gorm.io/gorm"
)

// New returns a migrated database backed by a file in t.TempDir with
// foreign keys enforced. The connection is closed when the test ends.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "chat.db") + "?_foreign_keys=on&_busy_timeout=5000"
	gdb, err := db.Connect(db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("dbtest: connect: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("dbtest: migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}
