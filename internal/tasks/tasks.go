// Package tasks tracks homework tasks and the time spent on them.
package tasks

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m3rciful/logobot/core/logger"
	"github.com/m3rciful/logobot/internal/apperr"
)

var (
	ErrTaskNotFound  = apperr.New(apperr.CodeNotFound, "task not found")
	ErrTimerRunning  = apperr.New(apperr.CodeConflict, "timer already running")
	ErrNoActiveTimer = apperr.New(apperr.CodeNotFound, "no running timer")
)

const (
	maxNameLen        = 100
	maxDescriptionLen = 1000
)

// Task is a task owned by UserID. AssignedBy is set when an admin created it.
type Task struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	AssignedBy  *int64    `db:"assigned_by"`
	Completed   bool      `db:"completed"`
	CreatedAt   time.Time `db:"created_at"`

	// Tracked is the sum of closed timers in seconds.
	Tracked int64 `db:"tracked"`
	Running bool  `db:"running"`
}

// Assigned reports whether an admin assigned the task.
func (t Task) Assigned() bool { return t.AssignedBy != nil }

// Store persists tasks and timers. Ownership mismatches are reported as ErrTaskNotFound.
type Store interface {
	Create(ctx context.Context, t Task) (int64, error)
	ListByUser(ctx context.Context, userID int64) ([]Task, error)
	// StartTimer fails with ErrTimerRunning when the task already has an open timer.
	StartTimer(ctx context.Context, taskID, userID int64, at time.Time) error
	// StopTimer closes the open timer, marks assigned tasks completed and returns the elapsed time.
	StopTimer(ctx context.Context, taskID, userID int64, at time.Time) (time.Duration, error)
}

// Service validates task input.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService builds a Service. now defaults to time.Now.
func NewService(store Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// Create adds a task for userID.
func (s *Service) Create(ctx context.Context, userID int64, name, description string) (Task, error) {
	return s.create(ctx, Task{UserID: userID, Name: name, Description: description})
}

// Assign creates a task for userID on behalf of adminID.
func (s *Service) Assign(ctx context.Context, adminID, userID int64, name, description string) (Task, error) {
	if userID <= 0 {
		return Task{}, apperr.Usagef("user id must be positive")
	}
	return s.create(ctx, Task{UserID: userID, Name: name, Description: description, AssignedBy: &adminID})
}

func (s *Service) create(ctx context.Context, t Task) (Task, error) {
	t.Name = strings.TrimSpace(t.Name)
	t.Description = strings.TrimSpace(t.Description)
	if err := ValidateName(t.Name); err != nil {
		return Task{}, err
	}
	if utf8.RuneCountInString(t.Description) > maxDescriptionLen {
		return Task{}, apperr.Usagef("description is longer than %d characters", maxDescriptionLen)
	}
	t.CreatedAt = s.now()
	id, err := s.store.Create(ctx, t)
	if err != nil {
		return Task{}, err
	}
	t.ID = id
	logger.SVCTasks.InfoContext(ctx, "task created",
		slog.String("event", "task.create"),
		slog.Int64("task_id", id),
		slog.Int64("target_user_id", t.UserID),
		slog.Bool("assigned", t.Assigned()),
	)
	return t, nil
}

// ValidateName checks a task name typed by a user.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Usagef("task name is empty")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return apperr.Usagef("task name is longer than %d characters", maxNameLen)
	}
	return nil
}

// List returns the tasks of userID, own and assigned, newest first.
func (s *Service) List(ctx context.Context, userID int64) ([]Task, error) {
	return s.store.ListByUser(ctx, userID)
}

// Start opens a timer on taskID.
func (s *Service) Start(ctx context.Context, userID, taskID int64) error {
	if err := s.store.StartTimer(ctx, taskID, userID, s.now()); err != nil {
		return err
	}
	logger.SVCTasks.InfoContext(ctx, "timer started",
		slog.String("event", "task.start"),
		slog.Int64("task_id", taskID),
	)
	return nil
}

// Stop closes the running timer on taskID and returns how long it ran.
func (s *Service) Stop(ctx context.Context, userID, taskID int64) (time.Duration, error) {
	took, err := s.store.StopTimer(ctx, taskID, userID, s.now())
	if err != nil {
		return 0, err
	}
	logger.SVCTasks.InfoContext(ctx, "timer stopped",
		slog.String("event", "task.stop"),
		slog.Int64("task_id", taskID),
		slog.Duration("duration", took),
	)
	return took, nil
}
