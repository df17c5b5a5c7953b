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

func TestHandleSeeder(t *testing.T) {
	ctx := context.Background()
	h := storagetest.Open(t)
	s := storage.NewAccessStore(h)
	require.NoError(t, s.Grant(ctx, access.AllowedUser{
		Applicant: access.Applicant{UserID: 1, Handle: "already_here"},
		GrantedAt: t0,
	}))

	seed := storage.HandleSeeder([]string{"@Parent_Anna", "parent_anna", "bad", "already_here"})
	require.NoError(t, seed.Seed(ctx, h.DB()))
	require.NoError(t, seed.Seed(ctx, h.DB()))

	handles, err := s.ListHandles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"parent_anna"}, handles)
}

func TestSeededHandleStaysClaimedAfterRevoke(t *testing.T) {
	ctx := context.Background()
	h := storagetest.Open(t)
	g := access.NewGate(access.Options{
		Admins:     []int64{111},
		Store:      storage.NewAccessStore(h),
		Membership: memberSet{},
		Now:        func() time.Time { return t0 },
	})
	seed := storage.HandleSeeder([]string{"anna_k"})
	anna := access.Applicant{UserID: 222, Handle: "anna_k"}

	require.NoError(t, seed.Seed(ctx, h.DB()))
	d, err := g.CheckAccess(ctx, anna)
	require.NoError(t, err)
	require.Equal(t, access.StatusAllowed, d.Status)

	require.NoError(t, g.Revoke(ctx, 222))
	// restart
	require.NoError(t, seed.Seed(ctx, h.DB()))

	d, err = g.CheckAccess(ctx, anna)
	require.NoError(t, err)
	assert.Equal(t, access.Decision{Status: access.StatusDenied, Prompt: access.PromptSubscribe}, d)
	handles, err := g.Handles(ctx)
	require.NoError(t, err)
	assert.Empty(t, handles)
}
