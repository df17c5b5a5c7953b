package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/logobot/core/bootstrap"
	"github.com/m3rciful/logobot/core/logger"
	"github.com/m3rciful/logobot/internal/access"
)

// HandleSeeder inserts pre-approved handles from the config into allowed_handles.
// Existing rows are left alone, so a claimed handle stays claimed across
// restarts even after its owner is revoked.
func HandleSeeder(handles []string) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
		now := time.Now().UTC()
		added := 0
		for _, raw := range handles {
			h := access.NormalizeHandle(raw)
			if !access.ValidHandle(h) {
				logger.SEED.Warn("handle skipped",
					slog.String("event", "seed.handles"),
					slog.String("handle", raw),
					slog.String("status", "skip"),
				)
				continue
			}
			var claimed int
			if err := db.GetContext(ctx, &claimed, db.Rebind(`SELECT COUNT(*) FROM allowed_users WHERE handle = ?`), h); err != nil {
				return err
			}
			if claimed > 0 {
				continue
			}
			res, err := db.ExecContext(ctx, db.Rebind(`INSERT INTO allowed_handles (handle, added_at) VALUES (?, ?)
ON CONFLICT (handle) DO NOTHING`), h, now)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				added++
			}
		}
		logger.SEED.Info("handles seeded",
			slog.String("event", "seed.handles"),
			slog.Int("count", added),
		)
		return nil
	})
}
