package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	coredatabase "github.com/m3rciful/logobot/core/database"
	"github.com/m3rciful/logobot/internal/tasks"
)

// TaskStore implements tasks.Store.
type TaskStore struct {
	h *coredatabase.Handle
}

// NewTaskStore binds tasks and task_timers to h.
func NewTaskStore(h *coredatabase.Handle) *TaskStore {
	return &TaskStore{h: h}
}

func (s *TaskStore) Create(ctx context.Context, t tasks.Task) (int64, error) {
	var id int64
	err := s.h.Transact(ctx, "tasks.create", func(q coredatabase.Execer) error {
		return q.GetContext(ctx, &id, q.Rebind(`INSERT INTO tasks (user_id, name, description, assigned_by, completed, created_at)
VALUES (?, ?, ?, ?, ?, ?) RETURNING id`), t.UserID, t.Name, t.Description, t.AssignedBy, false, t.CreatedAt.UTC())
	})
	return id, err
}

func (s *TaskStore) ListByUser(ctx context.Context, userID int64) ([]tasks.Task, error) {
	var out []tasks.Task
	err := s.h.Read(ctx, "tasks.list", func(q coredatabase.Execer) error {
		out = out[:0]
		return q.SelectContext(ctx, &out, q.Rebind(`SELECT t.id, t.user_id, t.name, t.description, t.assigned_by, t.completed, t.created_at,
	COALESCE((SELECT SUM(duration_seconds) FROM task_timers WHERE task_id = t.id AND stopped_at IS NOT NULL), 0) AS tracked,
	EXISTS (SELECT 1 FROM task_timers WHERE task_id = t.id AND stopped_at IS NULL) AS running
FROM tasks t
WHERE t.user_id = ?
ORDER BY t.created_at DESC, t.id DESC`), userID)
	})
	return out, err
}

func owned(ctx context.Context, q coredatabase.Execer, taskID, userID int64) (*int64, error) {
	var assignedBy *int64
	err := q.GetContext(ctx, &assignedBy, q.Rebind(`SELECT assigned_by FROM tasks WHERE id = ? AND user_id = ?`), taskID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tasks.ErrTaskNotFound
	}
	return assignedBy, err
}

func (s *TaskStore) StartTimer(ctx context.Context, taskID, userID int64, at time.Time) error {
	return s.h.Transact(ctx, "tasks.start", func(q coredatabase.Execer) error {
		if _, err := owned(ctx, q, taskID, userID); err != nil {
			return err
		}
		running, err := exists(ctx, q, `SELECT COUNT(*) FROM task_timers WHERE task_id = ? AND stopped_at IS NULL`, taskID)
		if err != nil {
			return err
		}
		if running {
			return tasks.ErrTimerRunning
		}
		_, err = exec(ctx, q, `INSERT INTO task_timers (task_id, user_id, started_at, duration_seconds)
VALUES (?, ?, ?, 0)`, taskID, userID, at.UTC())
		// a concurrent start won the partial unique index
		if uniqueViolation(err) {
			return tasks.ErrTimerRunning
		}
		return err
	})
}

func uniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func (s *TaskStore) StopTimer(ctx context.Context, taskID, userID int64, at time.Time) (time.Duration, error) {
	var took time.Duration
	err := s.h.Transact(ctx, "tasks.stop", func(q coredatabase.Execer) error {
		assignedBy, err := owned(ctx, q, taskID, userID)
		if err != nil {
			return err
		}
		var timer struct {
			ID        int64     `db:"id"`
			StartedAt time.Time `db:"started_at"`
		}
		err = q.GetContext(ctx, &timer, q.Rebind(`SELECT id, started_at FROM task_timers
WHERE task_id = ? AND stopped_at IS NULL`), taskID)
		if errors.Is(err, sql.ErrNoRows) {
			return tasks.ErrNoActiveTimer
		}
		if err != nil {
			return err
		}
		took = at.Sub(timer.StartedAt).Truncate(time.Second)
		if took < 0 {
			took = 0
		}
		if _, err := exec(ctx, q, `UPDATE task_timers SET stopped_at = ?, duration_seconds = ? WHERE id = ?`,
			at.UTC(), int64(took/time.Second), timer.ID); err != nil {
			return err
		}
		if assignedBy != nil {
			_, err = exec(ctx, q, `UPDATE tasks SET completed = ? WHERE id = ?`, true, taskID)
		}
		return err
	})
	return took, err
}

var _ tasks.Store = (*TaskStore)(nil)
