package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/m3rciful/logobot/core/logger"
	"github.com/m3rciful/logobot/core/netutil"
)

// ErrUnavailable matches, under errors.Is, every UnavailableError.
var ErrUnavailable = errors.New("store unavailable")

// UnavailableError is returned once a retryable failure outlives the policy.
type UnavailableError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %s after %d attempts: %v", ErrUnavailable, e.Op, e.Attempts, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// Code is read by the router log summary.
func (e *UnavailableError) Code() string { return "UNAVAILABLE" }

// Execer is what a unit of work may use: a transaction or the pool itself.
type Execer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Policy bounds how often a unit of work is retried. Attempt n waits Backoff*n before running again.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration

	sleep func(context.Context, time.Duration) error
}

// Handle runs units of work against db under a retry policy.
type Handle struct {
	db     *sqlx.DB
	policy Policy
}

// NewHandle wraps db. A non-positive MaxAttempts means a single attempt.
func NewHandle(db *sqlx.DB, policy Policy) *Handle {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.sleep == nil {
		policy.sleep = sleepCtx
	}
	return &Handle{db: db, policy: policy}
}

// DB returns the underlying pool.
func (h *Handle) DB() *sqlx.DB { return h.db }

// Transact runs fn inside one transaction, retrying the whole transaction on
// retryable failures. fn must not keep side effects outside the transaction.
func (h *Handle) Transact(ctx context.Context, op string, fn func(Execer) error) error {
	return h.retry(ctx, op, func() error {
		tx, err := h.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// Read runs fn directly on the pool with the same retry rules.
func (h *Handle) Read(ctx context.Context, op string, fn func(Execer) error) error {
	return h.retry(ctx, op, func() error { return fn(h.db) })
}

func (h *Handle) retry(ctx context.Context, op string, once func() error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = once(); err == nil || !Retryable(err) {
			return err
		}
		if attempt >= h.policy.MaxAttempts {
			break
		}
		delay := h.policy.Backoff * time.Duration(attempt)
		logger.Warn(ctx, "db", "tx.retry",
			slog.String("op", op),
			slog.Int("attempts", attempt),
			slog.Duration("backoff", delay),
			slog.String("err", err.Error()),
		)
		if sleepErr := h.policy.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}
	logger.Error(ctx, "db", "tx.exhausted",
		slog.String("op", op),
		slog.Int("attempts", h.policy.MaxAttempts),
		slog.String("err", err.Error()),
	)
	return &UnavailableError{Op: op, Attempts: h.policy.MaxAttempts, Err: err}
}

// Retryable reports whether err is a transient store failure: sqlite busy or
// locked, a postgres connection or serialization failure, a broken pooled
// connection or a transient network error.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "08":
			return true
		case pqErr.Code == "40001", pqErr.Code == "40P01":
			return true
		}
		return false
	}
	return netutil.ShouldRetry(err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
