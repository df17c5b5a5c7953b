package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/logobot/core/config"
	coredatabase "github.com/m3rciful/logobot/core/database"
	"github.com/m3rciful/logobot/core/logger"
)

// Options control the bootstrap pipeline. Nil hooks fall back to the core implementations.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	// Migrations holds one directory per driver; MigrationsDir picks it.
	Migrations    fs.FS
	MigrationsDir func(driver string) string
	Seeders       []Seeder

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(*sqlx.DB, coredatabase.Config, fs.FS, string) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB     *sqlx.DB
	Handle *coredatabase.Handle
}

// Run initializes the logger, opens the store, applies migrations and runs seeders in order.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	if opts.Migrations == nil {
		return nil, errors.New("bootstrap: migrations not provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	dbCfg := opts.Database
	if err := dbCfg.Normalize(); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	dir := dbCfg.Driver
	if opts.MigrationsDir != nil {
		dir = opts.MigrationsDir(dbCfg.Driver)
	}
	if err := migrate(db, dbCfg, opts.Migrations, dir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	for i, s := range opts.Seeders {
		start := time.Now()
		if err := s.Seed(ctx, db); err != nil {
			_ = db.Close()
			logger.SEED.Error("seeder failed",
				slog.String("event", "seed"),
				slog.Int("count", i),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("bootstrap: seeder %d failed: %w", i, err)
		}
		logger.SEED.Debug("seeder done",
			slog.String("event", "seed"),
			slog.Int("count", i),
			slog.Duration("duration", logger.Took(start)),
		)
	}

	return &Result{DB: db, Handle: coredatabase.NewHandle(db, dbCfg.Policy())}, nil
}
