package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/logobot/internal/access"
	"github.com/m3rciful/logobot/internal/storage"
	"github.com/m3rciful/logobot/internal/storage/storagetest"
)

var t0 = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func TestAccessStorePendingLifecycle(t *testing.T) {
	ctx := context.Background()
	s := storage.NewAccessStore(storagetest.Open(t))
	req := access.PendingRequest{
		Applicant:   access.Applicant{UserID: 222, Handle: "anna_k", DisplayName: "Anna"},
		RequestedAt: t0,
	}

	created, err := s.CreatePending(ctx, req)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = s.CreatePending(ctx, req)
	require.NoError(t, err)
	assert.False(t, created)

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.Applicant, pending[0].Applicant)
	assert.True(t, t0.Equal(pending[0].RequestedAt))

	got, err := s.Approve(ctx, 222, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "anna_k", got.Handle)

	ok, err := s.IsAllowed(ctx, 222)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.HasPending(ctx, 222)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Approve(ctx, 222, t0)
	assert.ErrorIs(t, err, access.ErrNotPending)
}

func TestAccessStoreDeletes(t *testing.T) {
	ctx := context.Background()
	s := storage.NewAccessStore(storagetest.Open(t))

	deleted, err := s.DeletePending(ctx, 5)
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, s.Grant(ctx, access.AllowedUser{Applicant: access.Applicant{UserID: 5}, GrantedAt: t0}))
	require.NoError(t, s.Grant(ctx, access.AllowedUser{Applicant: access.Applicant{UserID: 5, Handle: "x"}, GrantedAt: t0}))
	allowed, err := s.ListAllowed(ctx)
	require.NoError(t, err)
	require.Len(t, allowed, 1)
	assert.Equal(t, "x", allowed[0].Handle)

	deleted, err = s.DeleteAllowed(ctx, 5)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = s.DeleteAllowed(ctx, 5)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestAccessStoreGrantClearsPending(t *testing.T) {
	ctx := context.Background()
	s := storage.NewAccessStore(storagetest.Open(t))
	_, err := s.CreatePending(ctx, access.PendingRequest{Applicant: access.Applicant{UserID: 9}, RequestedAt: t0})
	require.NoError(t, err)

	require.NoError(t, s.Grant(ctx, access.AllowedUser{Applicant: access.Applicant{UserID: 9}, GrantedAt: t0}))
	ok, err := s.HasPending(ctx, 9)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccessStoreClaimHandle(t *testing.T) {
	ctx := context.Background()
	s := storage.NewAccessStore(storagetest.Open(t))
	require.NoError(t, s.AddHandle(ctx, "parent_olga", t0))
	require.NoError(t, s.AddHandle(ctx, "parent_olga", t0))

	a := access.Applicant{UserID: 77, Handle: "parent_olga", DisplayName: "Olga"}
	claimed, err := s.ClaimHandle(ctx, access.Applicant{UserID: 77, Handle: "someone_else"}, t0)
	require.NoError(t, err)
	assert.False(t, claimed)

	claimed, err = s.ClaimHandle(ctx, a, t0)
	require.NoError(t, err)
	assert.True(t, claimed)

	handles, err := s.ListHandles(ctx)
	require.NoError(t, err)
	assert.Empty(t, handles)
	ok, err := s.IsAllowed(ctx, 77)
	require.NoError(t, err)
	assert.True(t, ok)

	claimed, err = s.ClaimHandle(ctx, a, t0)
	require.NoError(t, err)
	assert.False(t, claimed)

	_, err = s.DeleteAllowed(ctx, 77)
	require.NoError(t, err)
	claimed, err = s.ClaimHandle(ctx, a, t0)
	require.NoError(t, err)
	assert.False(t, claimed, "claimed handles are kept")

	require.NoError(t, s.AddHandle(ctx, "parent_olga", t0.Add(time.Hour)))
	handles, err = s.ListHandles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"parent_olga"}, handles)
	claimed, err = s.ClaimHandle(ctx, a, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, claimed)
}

// Runs the gate end to end on the real store.
func TestGateOnSQLite(t *testing.T) {
	ctx := context.Background()
	members := memberSet{222: true}
	g := access.NewGate(access.Options{
		Admins:     []int64{111},
		Store:      storage.NewAccessStore(storagetest.Open(t)),
		Membership: members,
		Now:        func() time.Time { return t0 },
	})
	u := access.Applicant{UserID: 222, Handle: "anna_k"}

	_, err := g.RequestAccess(ctx, u)
	require.NoError(t, err)
	_, err = g.RequestAccess(ctx, u)
	require.NoError(t, err)
	pending, err := g.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = g.Approve(ctx, 222)
	require.NoError(t, err)
	d, err := g.CheckAccess(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, access.StatusAllowed, d.Status)

	require.NoError(t, g.Revoke(ctx, 222))
	d, err = g.CheckAccess(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, access.Decision{Status: access.StatusDenied, Prompt: access.PromptRequestAccess}, d)
}

type memberSet map[int64]bool

func (m memberSet) IsMember(_ context.Context, id int64) (bool, error) { return m[id], nil }
