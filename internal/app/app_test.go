package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/logobot/core/bootstrap"
	coreconfig "github.com/m3rciful/logobot/core/config"
	tg "github.com/m3rciful/logobot/core/telegram"
	"github.com/m3rciful/logobot/internal/exercises"
)

type noSearch struct{}

func (noSearch) Search(context.Context, string, int) ([]exercises.Video, error) { return nil, nil }

func testConfig(t *testing.T) *Config {
	t.Helper()
	var c Config
	c.Telegram.Token = "1:test"
	c.Telegram.AdminIDs = []int64{1}
	c.Telegram.ChannelID = -5
	c.RateLimit.IntervalMS = 500
	c.Database.Path = filepath.Join(t.TempDir(), "app.db")
	c.Access.Handles = []string{"parent_anna"}
	require.NoError(t, c.Normalize())
	return &c
}

func TestNewWiresBot(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, Options{
		Bootstrap: bootstrap.Options{LoggerInit: func(*coreconfig.Config) error { return nil }},
		Searcher:  noSearch{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	var handles int
	require.NoError(t, a.infra.DB.Get(&handles, `SELECT COUNT(*) FROM allowed_handles`))
	assert.Equal(t, 1, handles)

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	assert.Same(t, a.Bot().Registry(), opts.Registry)
	assert.NotNil(t, opts.Routes)

	var names []string
	for _, mw := range opts.Middlewares {
		names = append(names, mw.Name)
	}
	assert.Equal(t, []string{"recover", "rate_limit", "logger", "metrics"}, names)

	cmds := opts.Registry.ListCommands(true)
	var visible []string
	for _, c := range cmds {
		visible = append(visible, c.Text)
	}
	assert.Contains(t, visible, "/start")
	assert.Contains(t, visible, "/tasks")
	assert.NotContains(t, visible, "/exercises")

	// metrics listener is disabled without an address
	require.NoError(t, opts.OnStop(context.Background(), tg.Runtime{}))
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(context.Background(), nil, Options{})
	assert.Error(t, err)
}
