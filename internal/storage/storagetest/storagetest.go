// Package storagetest opens migrated in-memory stores for tests.
package storagetest

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	coredatabase "github.com/m3rciful/logobot/core/database"
	"github.com/m3rciful/logobot/migrations"
)

// Open returns a handle over a fresh migrated in-memory sqlite database.
// The database lives until the test ends.
func Open(t testing.TB) *coredatabase.Handle {
	t.Helper()
	db, err := sqlx.Open(coredatabase.DriverSQLite, "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	cfg := coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: ":memory:"}
	if err := coredatabase.RunMigrations(db, cfg, migrations.FS, migrations.Dir(cfg.Driver)); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return coredatabase.NewHandle(db, coredatabase.Policy{MaxAttempts: 2, Backoff: time.Millisecond})
}
