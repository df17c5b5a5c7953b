package database

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/logobot/core/logger"
)

// RunMigrations applies every up migration found in dir of files.
//
// sqlite runs over db itself so in-memory databases see the schema.
// postgres gets a dedicated connection from cfg that is closed afterwards.
func RunMigrations(db *sqlx.DB, cfg Config, files fs.FS, dir string) error {
	src, err := iofs.New(files, dir)
	if err != nil {
		return fmt.Errorf("open migrations %q: %w", dir, err)
	}
	names := listMigrationFiles(files, dir)
	logger.MIG.Debug("migrations resolved",
		slog.String("event", "resolve"),
		slog.String("dir", dir),
		slog.Int("count", len(names)),
	)

	var m *migrate.Migrate
	switch cfg.Driver {
	case DriverPostgres:
		m, err = migrate.NewWithSourceInstance("iofs", src, cfg.MigrateURL())
		if err == nil {
			defer m.Close()
		}
	default:
		var driver migratedb.Driver
		driver, err = sqlite3.WithInstance(db.DB, &sqlite3.Config{})
		if err == nil {
			// Closing m would close db, which the caller still owns.
			m, err = migrate.NewWithInstance("iofs", src, DriverSQLite, driver)
		}
	}
	if err != nil {
		logger.MIG.Error("init failed",
			slog.String("event", "db.migrate"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	from := currentVersion(m)
	start := time.Now()
	upErr := m.Up()
	took := logger.RoundMS(time.Since(start))
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", took),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}
	to := currentVersion(m)

	logger.MIG.Info("migrations summary",
		slog.String("event", "summary"),
		slog.String("driver", cfg.Driver),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", countApplied(names, from, to)),
		slog.Duration("duration", took),
	)
	return nil
}

func currentVersion(m *migrate.Migrate) uint {
	v, _, err := m.Version()
	if err != nil {
		return 0
	}
	return v
}

func listMigrationFiles(files fs.FS, dir string) []string {
	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, path.Base(e.Name()))
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return uint(v)
}

func countApplied(files []string, from, to uint) int {
	n := 0
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			n++
		}
	}
	return n
}
