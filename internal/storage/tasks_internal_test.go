package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/logobot/internal/storage/storagetest"
)

func TestUniqueViolation(t *testing.T) {
	h := storagetest.Open(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	_, err := h.DB().ExecContext(ctx, `INSERT INTO tasks (user_id, name, description, completed, created_at)
VALUES (1, 'Lip drills', '', FALSE, ?)`, at)
	require.NoError(t, err)

	insert := `INSERT INTO task_timers (task_id, user_id, started_at, duration_seconds) VALUES (1, 1, ?, 0)`
	_, err = h.DB().ExecContext(ctx, insert, at)
	require.NoError(t, err)
	_, err = h.DB().ExecContext(ctx, insert, at.Add(time.Second))
	require.Error(t, err)

	assert.True(t, uniqueViolation(err), "second open timer on sqlite")
	assert.True(t, uniqueViolation(fmt.Errorf("tasks.start: %w", &pq.Error{Code: "23505"})))
	assert.False(t, uniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, uniqueViolation(errors.New("boom")))
	assert.False(t, uniqueViolation(nil))
}
