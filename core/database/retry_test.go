package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockHandle(t *testing.T, attempts int) (*Handle, sqlmock.Sqlmock, *[]time.Duration) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	var slept []time.Duration
	h := NewHandle(sqlx.NewDb(raw, "sqlmock"), Policy{
		MaxAttempts: attempts,
		Backoff:     10 * time.Millisecond,
		sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	})
	return h, mock, &slept
}

func insertSlot(tx Execer) error {
	_, err := tx.ExecContext(context.Background(), "INSERT INTO schedule_slots (slot_date, slot_time) VALUES (?, ?)", "2026-03-02", "10:00")
	return err
}

var busy = sqlite3.Error{Code: sqlite3.ErrBusy}

func TestTransactCommits(t *testing.T) {
	h, mock, slept := newMockHandle(t, 3)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO schedule_slots").WithArgs("2026-03-02", "10:00").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, h.Transact(context.Background(), "publish", insertSlot))
	assert.Empty(t, *slept)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactRetriesBusyWithLinearBackoff(t *testing.T) {
	h, mock, slept := newMockHandle(t, 3)
	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO schedule_slots").WillReturnError(busy)
		mock.ExpectRollback()
	}
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO schedule_slots").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, h.Transact(context.Background(), "publish", insertSlot))
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *slept)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactExhaustionIsUnavailable(t *testing.T) {
	h, mock, slept := newMockHandle(t, 2)
	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO schedule_slots").WillReturnError(busy)
		mock.ExpectRollback()
	}

	err := h.Transact(context.Background(), "publish", insertSlot)
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, busy)
	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "publish", unavailable.Op)
	assert.Equal(t, "UNAVAILABLE", unavailable.Code())
	assert.Len(t, *slept, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactDoesNotRetryLogicErrors(t *testing.T) {
	h, mock, slept := newMockHandle(t, 5)
	notPending := errors.New("request not pending")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := h.Transact(context.Background(), "approve", func(Execer) error { return notPending })
	require.ErrorIs(t, err, notPending)
	assert.Empty(t, *slept)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReadRetriesConnectionClass(t *testing.T) {
	h, mock, _ := newMockHandle(t, 2)
	mock.ExpectQuery("SELECT COUNT").WillReturnError(&pq.Error{Code: "08006"})
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))

	var n int
	err := h.Read(context.Background(), "count", func(q Execer) error {
		return q.GetContext(context.Background(), &n, "SELECT COUNT(*) FROM pending_requests")
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	h, mock, _ := newMockHandle(t, 3)
	h.policy.sleep = sleepCtx
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mock.ExpectQuery("SELECT").WillReturnError(busy)

	err := h.Read(ctx, "count", func(q Execer) error {
		var n int
		return q.GetContext(ctx, &n, "SELECT 1")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", want: false},
		{name: "busy", err: busy, want: true},
		{name: "locked", err: sqlite3.Error{Code: sqlite3.ErrLocked}, want: true},
		{name: "constraint", err: sqlite3.Error{Code: sqlite3.ErrConstraint}, want: false},
		{name: "pq admin shutdown", err: &pq.Error{Code: "08003"}, want: true},
		{name: "pq serialization", err: &pq.Error{Code: "40001"}, want: true},
		{name: "pq unique", err: &pq.Error{Code: "23505"}, want: false},
		{name: "plain", err: errors.New("syntax error"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}
