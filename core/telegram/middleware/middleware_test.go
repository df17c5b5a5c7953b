package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func newContext(t *testing.T, upd tele.Update) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return b.NewContext(upd)
}

func message(userID int64, text string) tele.Update {
	return tele.Update{ID: int(userID), Message: &tele.Message{
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		Text:   text,
	}}
}

func TestRateLimitMiddleware(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
		Now:       func() time.Time { return now },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	c := newContext(t, message(7, "hi"))
	require.NoError(t, h(c))
	require.NoError(t, h(c))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, limited)

	// another user is not affected
	require.NoError(t, h(newContext(t, message(8, "hi"))))
	assert.Equal(t, 2, calls)

	now = now.Add(time.Second)
	require.NoError(t, h(c))
	assert.Equal(t, 3, calls)

	cb := newContext(t, tele.Update{ID: 9, Callback: &tele.Callback{Sender: &tele.User{ID: 7}}})
	require.NoError(t, h(cb))
	require.NoError(t, h(cb))
	assert.Equal(t, 5, calls)
}

func TestWithAdminCheck(t *testing.T) {
	rejected := 0
	opts := AdminOptions{
		IsAdmin:  func(id int64) bool { return id == 111 },
		OnReject: func(tele.Context) error { rejected++; return nil },
	}
	ran := 0
	h := func(tele.Context) error { ran++; return nil }

	require.NoError(t, WithAdminCheck(opts, true, h)(newContext(t, message(111, "/pending"))))
	require.NoError(t, WithAdminCheck(opts, true, h)(newContext(t, message(222, "/pending"))))
	require.NoError(t, WithAdminCheck(opts, false, h)(newContext(t, message(222, "/help"))))
	assert.Equal(t, 2, ran)
	assert.Equal(t, 1, rejected)

	// no IsAdmin func means nobody is an admin
	require.NoError(t, AdminOnlyMiddleware(AdminOptions{})(h)(newContext(t, message(111, "/pending"))))
	assert.Equal(t, 2, ran)
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(newContext(t, message(1, "x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestLoggerMiddlewareSetsRID(t *testing.T) {
	c := newContext(t, message(5, "hello"))
	var rid string
	require.NoError(t, LoggerMiddleware(func(c tele.Context) error {
		rid, _ = c.Get("rid").(string)
		return nil
	})(c))
	assert.NotEmpty(t, rid)
}

func TestCountersWithoutMiddleware(t *testing.T) {
	n, kb := GetCounters(newContext(t, message(1, "x")))
	assert.Zero(t, n)
	assert.False(t, kb)
	assert.True(t, hasKeyboard([]any{&tele.ReplyMarkup{}}))
	assert.False(t, hasKeyboard([]any{&tele.SendOptions{}}))
}

func TestReceiptsDeduplicate(t *testing.T) {
	r := &receipts{seen: map[int]time.Time{}}
	now := time.Now()
	assert.True(t, r.first(1, now))
	assert.False(t, r.first(1, now))
	assert.True(t, r.first(1, now.Add(keepReceipts+time.Second)))
}
