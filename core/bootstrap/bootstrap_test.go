package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/logobot/core/config"
	coredatabase "github.com/m3rciful/logobot/core/database"
	"github.com/m3rciful/logobot/migrations"
)

func memoryOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Config:        &coreconfig.Config{},
		Database:      coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: ":memory:"},
		Migrations:    migrations.FS,
		MigrationsDir: migrations.Dir,
		LoggerInit:    func(*coreconfig.Config) error { return nil },
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			db, err := sqlx.Open("sqlite3", ":memory:")
			if err != nil {
				return nil, err
			}
			db.SetMaxOpenConns(1)
			t.Cleanup(func() { _ = db.Close() })
			return db, nil
		},
	}
}

func TestRunMigratesAndSeedsInOrder(t *testing.T) {
	opts := memoryOptions(t)
	var order []string
	opts.Seeders = []Seeder{
		SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
			order = append(order, "handles")
			_, err := db.ExecContext(ctx, "INSERT INTO allowed_handles (handle, added_at) VALUES ('parent_anna', CURRENT_TIMESTAMP)")
			return err
		}),
		SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
			order = append(order, "check")
			var n int
			if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM allowed_handles"); err != nil {
				return err
			}
			if n != 1 {
				return errors.New("first seeder did not run")
			}
			return nil
		}),
	}

	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.NotNil(t, res.Handle)
	assert.Equal(t, []string{"handles", "check"}, order)

	for _, table := range []string{"allowed_users", "pending_requests", "schedule_slots", "tasks", "task_timers"} {
		var n int
		require.NoError(t, res.DB.Get(&n, "SELECT COUNT(*) FROM "+table), table)
	}
}

func TestRunStopsOnSeederFailure(t *testing.T) {
	opts := memoryOptions(t)
	boom := errors.New("boom")
	opts.Seeders = []Seeder{SeederFunc(func(context.Context, *sqlx.DB) error { return boom })}

	_, err := Run(context.Background(), opts)
	require.ErrorIs(t, err, boom)
}

func TestRunRejectsUnknownDriver(t *testing.T) {
	opts := memoryOptions(t)
	opts.Database.Driver = "mysql"

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid database.driver")
}
