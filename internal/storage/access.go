// Package storage implements the service stores on top of sqlx. The SQL runs
// unchanged on sqlite and postgres; placeholders are rebound per driver.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	coredatabase "github.com/m3rciful/logobot/core/database"
	"github.com/m3rciful/logobot/internal/access"
)

// AccessStore implements access.Store.
type AccessStore struct {
	h *coredatabase.Handle
}

// NewAccessStore binds the access tables to h.
func NewAccessStore(h *coredatabase.Handle) *AccessStore {
	return &AccessStore{h: h}
}

type applicantRow struct {
	UserID      int64     `db:"user_id"`
	Handle      string    `db:"handle"`
	DisplayName string    `db:"display_name"`
	At          time.Time `db:"at"`
}

func (r applicantRow) applicant() access.Applicant {
	return access.Applicant{UserID: r.UserID, Handle: r.Handle, DisplayName: r.DisplayName}
}

const upsertAllowed = `INSERT INTO allowed_users (user_id, handle, display_name, granted_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET handle = excluded.handle, display_name = excluded.display_name`

func exec(ctx context.Context, q coredatabase.Execer, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func exists(ctx context.Context, q coredatabase.Execer, query string, args ...any) (bool, error) {
	var n int
	if err := q.GetContext(ctx, &n, q.Rebind(query), args...); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *AccessStore) IsAllowed(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := s.h.Read(ctx, "access.is_allowed", func(q coredatabase.Execer) (err error) {
		ok, err = exists(ctx, q, `SELECT COUNT(*) FROM allowed_users WHERE user_id = ?`, userID)
		return err
	})
	return ok, err
}

func (s *AccessStore) HasPending(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := s.h.Read(ctx, "access.has_pending", func(q coredatabase.Execer) (err error) {
		ok, err = exists(ctx, q, `SELECT COUNT(*) FROM pending_requests WHERE user_id = ?`, userID)
		return err
	})
	return ok, err
}

func (s *AccessStore) ClaimHandle(ctx context.Context, a access.Applicant, at time.Time) (bool, error) {
	var claimed bool
	err := s.h.Transact(ctx, "access.claim_handle", func(q coredatabase.Execer) error {
		claimed = false
		n, err := exec(ctx, q, `UPDATE allowed_handles SET claimed_by = ?, claimed_at = ?
WHERE handle = ? AND claimed_by IS NULL`, a.UserID, at.UTC(), a.Handle)
		if err != nil || n == 0 {
			return err
		}
		if _, err := exec(ctx, q, upsertAllowed, a.UserID, a.Handle, a.DisplayName, at.UTC()); err != nil {
			return err
		}
		if _, err := exec(ctx, q, `DELETE FROM pending_requests WHERE user_id = ?`, a.UserID); err != nil {
			return err
		}
		claimed = true
		return nil
	})
	return claimed, err
}

func (s *AccessStore) CreatePending(ctx context.Context, req access.PendingRequest) (bool, error) {
	var created bool
	err := s.h.Transact(ctx, "access.create_pending", func(q coredatabase.Execer) error {
		n, err := exec(ctx, q, `INSERT INTO pending_requests (user_id, handle, display_name, requested_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id) DO NOTHING`, req.UserID, req.Handle, req.DisplayName, req.RequestedAt.UTC())
		created = n > 0
		return err
	})
	return created, err
}

func (s *AccessStore) Approve(ctx context.Context, userID int64, at time.Time) (access.PendingRequest, error) {
	var req access.PendingRequest
	err := s.h.Transact(ctx, "access.approve", func(q coredatabase.Execer) error {
		var row applicantRow
		err := q.GetContext(ctx, &row, q.Rebind(`SELECT user_id, handle, display_name, requested_at AS at
FROM pending_requests WHERE user_id = ?`), userID)
		if errors.Is(err, sql.ErrNoRows) {
			return access.ErrNotPending
		}
		if err != nil {
			return err
		}
		if _, err := exec(ctx, q, upsertAllowed, row.UserID, row.Handle, row.DisplayName, at.UTC()); err != nil {
			return err
		}
		if _, err := exec(ctx, q, `DELETE FROM pending_requests WHERE user_id = ?`, userID); err != nil {
			return err
		}
		req = access.PendingRequest{Applicant: row.applicant(), RequestedAt: row.At}
		return nil
	})
	return req, err
}

func (s *AccessStore) Grant(ctx context.Context, u access.AllowedUser) error {
	return s.h.Transact(ctx, "access.grant", func(q coredatabase.Execer) error {
		if _, err := exec(ctx, q, upsertAllowed, u.UserID, u.Handle, u.DisplayName, u.GrantedAt.UTC()); err != nil {
			return err
		}
		_, err := exec(ctx, q, `DELETE FROM pending_requests WHERE user_id = ?`, u.UserID)
		return err
	})
}

// AddHandle pre-authorizes handle. A handle that was claimed and later
// revoked becomes claimable again.
func (s *AccessStore) AddHandle(ctx context.Context, handle string, at time.Time) error {
	return s.h.Transact(ctx, "access.add_handle", func(q coredatabase.Execer) error {
		_, err := exec(ctx, q, `INSERT INTO allowed_handles (handle, added_at) VALUES (?, ?)
ON CONFLICT (handle) DO UPDATE SET added_at = excluded.added_at, claimed_by = NULL, claimed_at = NULL`, handle, at.UTC())
		return err
	})
}

func (s *AccessStore) DeletePending(ctx context.Context, userID int64) (bool, error) {
	return s.delete(ctx, "access.delete_pending", `DELETE FROM pending_requests WHERE user_id = ?`, userID)
}

func (s *AccessStore) DeleteAllowed(ctx context.Context, userID int64) (bool, error) {
	return s.delete(ctx, "access.delete_allowed", `DELETE FROM allowed_users WHERE user_id = ?`, userID)
}

func (s *AccessStore) delete(ctx context.Context, op, query string, userID int64) (bool, error) {
	var deleted bool
	err := s.h.Transact(ctx, op, func(q coredatabase.Execer) error {
		n, err := exec(ctx, q, query, userID)
		deleted = n > 0
		return err
	})
	return deleted, err
}

func (s *AccessStore) ListPending(ctx context.Context) ([]access.PendingRequest, error) {
	var rows []applicantRow
	err := s.h.Read(ctx, "access.list_pending", func(q coredatabase.Execer) error {
		rows = rows[:0]
		return q.SelectContext(ctx, &rows, `SELECT user_id, handle, display_name, requested_at AS at
FROM pending_requests ORDER BY requested_at, user_id`)
	})
	if err != nil {
		return nil, err
	}
	out := make([]access.PendingRequest, 0, len(rows))
	for _, r := range rows {
		out = append(out, access.PendingRequest{Applicant: r.applicant(), RequestedAt: r.At})
	}
	return out, nil
}

func (s *AccessStore) ListAllowed(ctx context.Context) ([]access.AllowedUser, error) {
	var rows []applicantRow
	err := s.h.Read(ctx, "access.list_allowed", func(q coredatabase.Execer) error {
		rows = rows[:0]
		return q.SelectContext(ctx, &rows, `SELECT user_id, handle, display_name, granted_at AS at
FROM allowed_users ORDER BY granted_at, user_id`)
	})
	if err != nil {
		return nil, err
	}
	out := make([]access.AllowedUser, 0, len(rows))
	for _, r := range rows {
		out = append(out, access.AllowedUser{Applicant: r.applicant(), GrantedAt: r.At})
	}
	return out, nil
}

// ListHandles returns the pre-authorized handles not yet claimed.
func (s *AccessStore) ListHandles(ctx context.Context) ([]string, error) {
	var handles []string
	err := s.h.Read(ctx, "access.list_handles", func(q coredatabase.Execer) error {
		handles = handles[:0]
		return q.SelectContext(ctx, &handles, `SELECT handle FROM allowed_handles WHERE claimed_by IS NULL ORDER BY handle`)
	})
	return handles, err
}

var _ access.Store = (*AccessStore)(nil)
