package router

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/logobot/core/telegram"
	"github.com/m3rciful/logobot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/logobot/core/telegram/helpers"
	"github.com/m3rciful/logobot/core/telegram/middleware"
	"github.com/m3rciful/logobot/internal/apperr"
)

// fakeAPI records Bot API methods called by the bot under test.
type fakeAPI struct {
	mu      sync.Mutex
	methods []string
}

func (f *fakeAPI) calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.methods {
		if m == method {
			n++
		}
	}
	return n
}

func newBot(t *testing.T) (*tele.Bot, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.methods = append(api.methods, path.Base(r.URL.Path))
		api.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	t.Cleanup(srv.Close)
	b, err := tele.NewBot(tele.Settings{Token: "1:test", URL: srv.URL, Offline: true, Client: srv.Client()})
	require.NoError(t, err)
	return b, api
}

func callback(unique, data string) tele.Update {
	return tele.Update{ID: 1, Callback: &tele.Callback{
		ID:     "cb1",
		Sender: &tele.User{ID: 222},
		Unique: unique,
		Data:   data,
	}}
}

type observed struct {
	handler, outcome string
}

func recorder() (Options, *[]observed) {
	var got []observed
	return Options{Observe: func(h, o string, _ time.Duration) {
		got = append(got, observed{h, o})
	}}, &got
}

func TestCallbackRouteAnswersOnce(t *testing.T) {
	b, api := newBot(t)
	reg := tg.NewRegistry()
	var payload string
	require.NoError(t, reg.RegisterCallback("approve", func(c tele.Context) error {
		payload = callbacks.Payload(c)
		return nil
	}))
	require.NoError(t, reg.RegisterCallback("toast", func(c tele.Context) error {
		return tghelpers.Toast(c, "done")
	}))
	opts, got := recorder()
	route := CallbackRoute(reg, opts)
	assert.Equal(t, tele.OnCallback, route.Endpoint)

	require.NoError(t, route.Handler(b.NewContext(callback("approve", "222"))))
	assert.Equal(t, "222", payload)
	assert.Equal(t, 1, api.calls("answerCallbackQuery"))

	require.NoError(t, route.Handler(b.NewContext(callback("toast", ""))))
	assert.Equal(t, 2, api.calls("answerCallbackQuery"))

	assert.Equal(t, []observed{{"callback.approve", "ok"}, {"callback.toast", "ok"}}, *got)
}

func TestCallbackRouteUnknownKey(t *testing.T) {
	b, api := newBot(t)
	reg := tg.NewRegistry()
	opts, got := recorder()
	require.NoError(t, CallbackRoute(reg, opts).Handler(b.NewContext(callback("missing", ""))))
	assert.Equal(t, 1, api.calls("answerCallbackQuery"))
	assert.Equal(t, []observed{{"callback.missing", "ok"}}, *got)
}

func TestCommandRoutesAdminCheck(t *testing.T) {
	b, _ := newBot(t)
	reg := tg.NewRegistry()
	ran := 0
	reg.RegisterCommand("/pending", tg.Command{
		Handler:     func(tele.Context) error { ran++; return nil },
		Description: "Pending",
		AdminOnly:   true,
	})
	rejected := 0
	opts, got := recorder()
	opts.Admin = middleware.AdminOptions{
		IsAdmin:  func(id int64) bool { return id == 111 },
		OnReject: func(tele.Context) error { rejected++; return nil },
	}
	routes := CommandRoutes(reg, opts)
	require.Len(t, routes, 1)
	assert.Equal(t, "/pending", routes[0].Endpoint)

	msg := func(id int64) tele.Context {
		return b.NewContext(tele.Update{ID: 2, Message: &tele.Message{
			Sender: &tele.User{ID: id}, Chat: &tele.Chat{ID: id}, Text: "/pending",
		}})
	}
	require.NoError(t, routes[0].Handler(msg(111)))
	require.NoError(t, routes[0].Handler(msg(222)))
	assert.Equal(t, 1, ran)
	assert.Equal(t, 1, rejected)
	assert.Len(t, *got, 2)
}

type fakeFSM struct{ active map[int64]bool }

func (f fakeFSM) InProgress(id int64) bool          { return f.active[id] }
func (f fakeFSM) ManagerHandler(tele.Context) error { return errors.New("fsm ran") }

func TestTextRoutesOrder(t *testing.T) {
	b, _ := newBot(t)
	reg := tg.NewRegistry()
	reg.RegisterCommand("/tasks", tg.Command{
		Handler:     func(tele.Context) error { return apperr.New(apperr.CodeNotFound, "no tasks") },
		Description: "Tasks",
		Labels:      []string{"My tasks"},
	})
	reg.RegisterCommand("/panel", tg.Command{
		Handler:     func(tele.Context) error { return nil },
		Description: "Admin panel",
		AdminOnly:   true,
		Labels:      []string{"Admin panel"},
	})
	unknown := 0
	opts, got := recorder()
	rejected := 0
	opts.Admin = middleware.AdminOptions{
		IsAdmin:  func(id int64) bool { return false },
		OnReject: func(tele.Context) error { rejected++; return nil },
	}
	routes := TextRoutes(fakeFSM{active: map[int64]bool{5: true}}, reg, TextOptions{
		Options:     opts,
		UnknownText: func(tele.Context) error { unknown++; return nil },
	})
	require.Len(t, routes, 2)
	text := routes[0].Handler

	say := func(id int64, s string) tele.Context {
		return b.NewContext(tele.Update{ID: 3, Message: &tele.Message{
			Sender: &tele.User{ID: id}, Chat: &tele.Chat{ID: id}, Text: s,
		}})
	}
	assert.EqualError(t, text(say(5, "My tasks")), "fsm ran")
	err := text(say(6, "My tasks"))
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	require.NoError(t, text(say(6, "Admin panel")))
	assert.Equal(t, 1, rejected)
	require.NoError(t, text(say(6, "hello")))
	assert.Equal(t, 1, unknown)

	assert.Equal(t, []observed{
		{"fsm", "fail"}, {"tasks", "fail"}, {"panel", "ok"}, {"unknown_text", "ok"},
	}, *got)
}

func TestDeriveErrorCode(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", deriveErrorCode(apperr.New(apperr.CodeNotFound, "x")))
	assert.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("x")))
	assert.Equal(t, "", deriveErrorCode(nil))
	assert.Equal(t, "grant_access", normalizeHandlerName("/Grant Access"))
	assert.Equal(t, "unknown", normalizeHandlerName(" "))
}
