package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/logobot/core/telegram"
	"github.com/m3rciful/logobot/internal/access"
	"github.com/m3rciful/logobot/internal/action"
	"github.com/m3rciful/logobot/internal/exercises"
	"github.com/m3rciful/logobot/internal/schedule"
	"github.com/m3rciful/logobot/internal/storage"
	"github.com/m3rciful/logobot/internal/storage/storagetest"
	"github.com/m3rciful/logobot/internal/tasks"
)

const (
	adminID int64 = 1
	userID  int64 = 222
)

type apiCall struct {
	method string
	params map[string]any
}

func (c apiCall) str(key string) string {
	s, _ := c.params[key].(string)
	return s
}

// fakeAPI answers Bot API requests and records them.
type fakeAPI struct {
	mu     sync.Mutex
	calls  []apiCall
	status string
}

func (f *fakeAPI) setStatus(s string) {
	f.mu.Lock()
	f.status = s
	f.mu.Unlock()
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&params)
	method := path.Base(r.URL.Path)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: method, params: params})
	status := f.status
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "sendMessage", "editMessageText":
		chat, _ := params["chat_id"].(string)
		if chat == "" {
			chat = "0"
		}
		_, _ = fmt.Fprintf(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":%s,"type":"private"}}}`, chat)
	case "getChatMember":
		_, _ = fmt.Fprintf(w, `{"ok":true,"result":{"status":%q,"user":{"id":%d}}}`, status, userID)
	default:
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}
}

// since returns the calls of method made after mark.
func (f *fakeAPI) since(mark int, method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls[mark:] {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) mark() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSearcher struct{}

func (fakeSearcher) Search(_ context.Context, query string, limit int) ([]exercises.Video, error) {
	out := make([]exercises.Video, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, exercises.Video{ID: fmt.Sprintf("vid%d", i), Title: fmt.Sprintf("Drill %d", i), Channel: "Clinic"})
	}
	return out, nil
}

type harness struct {
	t    *testing.T
	tb   *tele.Bot
	bot  *Bot
	api  *fakeAPI
	seq  int
	gate *access.Gate
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := &fakeAPI{status: "left"}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	tb, err := tele.NewBot(tele.Settings{
		Token:       "1:test",
		URL:         srv.URL,
		Offline:     true,
		Synchronous: true,
		Client:      srv.Client(),
	})
	require.NoError(t, err)

	db := storagetest.Open(t)
	clock := func() time.Time { return testNow }
	gate := access.NewGate(access.Options{
		Admins: []int64{adminID},
		Store:  storage.NewAccessStore(db),
		Now:    clock,
	})
	b := New(Deps{
		Gate:       gate,
		Schedule:   schedule.NewService(storage.NewScheduleStore(db), clock),
		Exercises:  exercises.NewService(fakeSearcher{}, nil, 3),
		Tasks:      tasks.NewService(storage.NewTaskStore(db), clock),
		ChannelID:  -100,
		ChannelURL: "https://t.me/clinic",
		Now:        clock,
	})
	require.NoError(t, b.OnStart(context.Background(), tg.Runtime{Bot: tb}))
	for _, r := range b.Routes(tb) {
		tb.Handle(r.Endpoint, r.Handler)
	}
	return &harness{t: t, tb: tb, bot: b, api: api, gate: gate}
}

func (h *harness) text(from int64, text string) {
	h.seq++
	h.tb.ProcessUpdate(tele.Update{ID: h.seq, Message: &tele.Message{
		ID:     h.seq,
		Text:   text,
		Sender: &tele.User{ID: from, FirstName: "Ann"},
		Chat:   &tele.Chat{ID: from, Type: tele.ChatPrivate},
	}})
}

func (h *harness) press(from int64, a action.Action) {
	h.seq++
	unique, data := a.Data()
	h.tb.ProcessUpdate(tele.Update{ID: h.seq, Callback: &tele.Callback{
		ID:      fmt.Sprintf("cb%d", h.seq),
		Sender:  &tele.User{ID: from, FirstName: "Ann"},
		Data:    "\f" + unique + "|" + data,
		Message: &tele.Message{ID: 5, Chat: &tele.Chat{ID: from, Type: tele.ChatPrivate}},
	}})
}

// replies returns the texts sent or edited into chat after mark.
func (h *harness) replies(mark int, chat int64) []string {
	id := fmt.Sprint(chat)
	var out []string
	for _, m := range []string{"sendMessage", "editMessageText"} {
		for _, c := range h.api.since(mark, m) {
			if c.str("chat_id") == id {
				out = append(out, c.str("text"))
			}
		}
	}
	return out
}

func (h *harness) toasts(mark int) []string {
	var out []string
	for _, c := range h.api.since(mark, "answerCallbackQuery") {
		out = append(out, c.str("text"))
	}
	return out
}

func TestAccessGateFlow(t *testing.T) {
	h := newHarness(t)

	m := h.api.mark()
	h.text(userID, labelExercises)
	assert.Equal(t, []string{textSubscribe}, h.replies(m, userID))

	h.api.setStatus("member")
	m = h.api.mark()
	h.press(userID, action.Action{Kind: action.CheckSubscription})
	assert.Equal(t, []string{textSubscribed}, h.replies(m, userID))

	m = h.api.mark()
	h.press(userID, action.Action{Kind: action.RequestAccess})
	assert.Contains(t, h.toasts(m), textRequestSent)
	adminMsgs := h.replies(m, adminID)
	require.Len(t, adminMsgs, 1)
	assert.Contains(t, adminMsgs[0], "New access request")

	m = h.api.mark()
	h.press(userID, action.Action{Kind: action.RequestAccess})
	assert.Equal(t, []string{textRequestExists}, h.toasts(m))

	m = h.api.mark()
	h.press(adminID, action.Action{Kind: action.Approve, UserID: userID})
	assert.Equal(t, []string{textGranted}, h.replies(m, userID))
	require.Len(t, h.replies(m, adminID), 1)
	assert.Contains(t, h.replies(m, adminID)[0], "Access granted to")

	// allowed users skip the subscription check
	h.api.setStatus("left")
	m = h.api.mark()
	h.text(userID, labelExercises)
	assert.Equal(t, []string{textCategories}, h.replies(m, userID))
}

func TestApproveWithoutRequest(t *testing.T) {
	h := newHarness(t)
	m := h.api.mark()
	h.press(adminID, action.Action{Kind: action.Approve, UserID: 999})
	assert.Equal(t, []string{access.ErrNotPending.Message()}, h.toasts(m))
}

func TestAdminCommandsRejectUsers(t *testing.T) {
	h := newHarness(t)

	m := h.api.mark()
	h.text(userID, "/pending")
	assert.Equal(t, []string{textAdminOnly}, h.replies(m, userID))

	m = h.api.mark()
	h.press(userID, action.Action{Kind: action.Approve, UserID: userID})
	assert.Equal(t, []string{textAdminOnly}, h.toasts(m))
	pending, err := h.gate.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestGrantAndRevokeCommands(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	m := h.api.mark()
	h.text(adminID, "/grant 333")
	assert.Equal(t, []string{textGranted}, h.replies(m, 333))
	allowed, err := h.gate.Allowed(ctx)
	require.NoError(t, err)
	require.Len(t, allowed, 1)

	m = h.api.mark()
	h.text(adminID, "/grant @Parent_Anna")
	got := h.replies(m, adminID)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "@parent_anna")

	m = h.api.mark()
	h.text(adminID, "/handles")
	got = h.replies(m, adminID)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "@parent_anna")

	m = h.api.mark()
	h.text(userID, "/handles")
	assert.Equal(t, []string{textAdminOnly}, h.replies(m, userID))

	m = h.api.mark()
	h.text(adminID, "/revoke 1")
	assert.Equal(t, []string{access.ErrAdminImmune.Message()}, h.replies(m, adminID))

	m = h.api.mark()
	h.text(adminID, "/revoke 333")
	assert.Equal(t, []string{textRevoked}, h.replies(m, 333))
}

func TestPublishSlotsDialogue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.press(adminID, panel(sectionPublish))
	assert.Equal(t, stateSlotDate, h.bot.fsm.GetState(adminID))

	m := h.api.mark()
	h.text(adminID, "01.03.2026")
	assert.Equal(t, []string{errPastDate.Message()}, h.replies(m, adminID))
	assert.Equal(t, stateSlotDate, h.bot.fsm.GetState(adminID))

	h.text(adminID, "12.03.2026")
	require.Equal(t, stateSlotTimes, h.bot.fsm.GetState(adminID))

	m = h.api.mark()
	h.press(adminID, action.Action{Kind: action.ConfirmSlots})
	assert.Equal(t, []string{textNoTimes}, h.toasts(m))

	h.press(adminID, action.Action{Kind: action.ToggleTime, Time: "10:00"})
	h.press(adminID, action.Action{Kind: action.ToggleTime, Time: "09:00"})
	h.press(adminID, action.Action{Kind: action.ToggleTime, Time: "11:00"})
	h.press(adminID, action.Action{Kind: action.ToggleTime, Time: "11:00"})

	m = h.api.mark()
	h.press(adminID, action.Action{Kind: action.ConfirmSlots})
	got := h.replies(m, adminID)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "New slots: 2 of 2")
	assert.False(t, h.bot.fsm.InProgress(adminID))

	times, err := h.bot.schedule.Available(ctx, "2026-03-12")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00"}, times)
}

func TestCancelSlotNotifiesOccupant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.bot.schedule.PublishSlots(ctx, "2026-03-11", []string{"15:00"})
	require.NoError(t, err)
	require.NoError(t, h.bot.schedule.Book(ctx, "2026-03-11", "15:00", userID))

	m := h.api.mark()
	h.press(adminID, action.Action{Kind: action.CancelSlot, Date: "2026-03-11", Time: "15:00"})
	got := h.replies(m, userID)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "2026-03-11 at 15:00 was cancelled")

	m = h.api.mark()
	h.press(adminID, action.Action{Kind: action.CancelSlot, Date: "2026-03-11", Time: "15:00"})
	assert.Contains(t, h.toasts(m), "Slot was already removed")
}

func TestTaskDialogueAndTimer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.gate.Grant(ctx, access.Applicant{UserID: userID}))

	m := h.api.mark()
	h.text(userID, "/newtask")
	h.text(userID, "Lip drills")
	h.text(userID, "-")
	got := h.replies(m, userID)
	require.Len(t, got, 3)
	assert.Equal(t, textTaskName, got[0])
	assert.Equal(t, textTaskDescription, got[1])
	assert.Contains(t, got[2], "Lip drills")
	assert.False(t, h.bot.fsm.InProgress(userID))

	list, err := h.bot.tasks.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Description)

	m = h.api.mark()
	h.press(userID, action.Action{Kind: action.TaskStart, TaskID: list[0].ID})
	assert.Contains(t, h.toasts(m), textTimerStarted)

	m = h.api.mark()
	h.press(userID, action.Action{Kind: action.TaskStart, TaskID: list[0].ID})
	assert.Equal(t, []string{tasks.ErrTimerRunning.Message()}, h.toasts(m))

	m = h.api.mark()
	h.press(userID, action.Action{Kind: action.TaskStop, TaskID: list[0].ID})
	assert.Contains(t, h.toasts(m), "⏹ Stopped after 0s")
}

func TestTasksNeedAccess(t *testing.T) {
	h := newHarness(t)
	m := h.api.mark()
	h.text(userID, "/newtask")
	assert.Equal(t, []string{textSubscribe}, h.replies(m, userID))
	assert.False(t, h.bot.fsm.InProgress(userID))
}

func TestExerciseVideos(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.gate.Grant(context.Background(), access.Applicant{UserID: userID}))

	m := h.api.mark()
	h.press(userID, action.Action{Kind: action.Category, Category: "sound_r"})
	edits := h.api.since(m, "editMessageText")
	require.Len(t, edits, 1)
	assert.Contains(t, edits[0].str("text"), "Choose a video")
	assert.Contains(t, edits[0].str("reply_markup"), "Drill 2")

	m = h.api.mark()
	h.press(userID, action.Action{Kind: action.Video, Category: "sound_r", Index: 1})
	edits = h.api.since(m, "editMessageText")
	require.Len(t, edits, 1)
	assert.Contains(t, edits[0].str("text"), "Drill 1")
	assert.Contains(t, edits[0].str("reply_markup"), "https://www.youtube.com/watch?v=vid1")

	m = h.api.mark()
	h.press(userID, action.Action{Kind: action.Video, Category: "sound_r", Index: 7})
	assert.Equal(t, []string{exercises.ErrVideoExpired.Message()}, h.toasts(m))
}

func TestUnknownTextAndCancel(t *testing.T) {
	h := newHarness(t)

	m := h.api.mark()
	h.text(userID, "hello?")
	assert.Equal(t, []string{textUnknown}, h.replies(m, userID))

	m = h.api.mark()
	h.text(userID, "/cancel")
	assert.Equal(t, []string{textNothingToDo}, h.replies(m, userID))
}

func TestStartShowsPanelButtonToAdmins(t *testing.T) {
	h := newHarness(t)

	m := h.api.mark()
	h.text(adminID, "/start")
	sent := h.api.since(m, "sendMessage")
	require.Len(t, sent, 1)
	assert.True(t, strings.Contains(sent[0].str("reply_markup"), labelPanel))

	m = h.api.mark()
	h.text(userID, "/start")
	sent = h.api.since(m, "sendMessage")
	require.Len(t, sent, 1)
	assert.False(t, strings.Contains(sent[0].str("reply_markup"), labelPanel))
}
