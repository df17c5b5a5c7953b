// Package bot wires the clinic features to Telegram: the client menu, the
// access prompts, exercises, tasks and the admin panel.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/logobot/core/logger"
	tg "github.com/m3rciful/logobot/core/telegram"
	"github.com/m3rciful/logobot/core/telegram/callbacks"
	"github.com/m3rciful/logobot/core/telegram/format"
	tghelpers "github.com/m3rciful/logobot/core/telegram/helpers"
	"github.com/m3rciful/logobot/core/telegram/middleware"
	"github.com/m3rciful/logobot/core/telegram/router"
	"github.com/m3rciful/logobot/core/telegram/state"
	"github.com/m3rciful/logobot/core/telegram/ui"
	"github.com/m3rciful/logobot/internal/access"
	"github.com/m3rciful/logobot/internal/action"
	"github.com/m3rciful/logobot/internal/apperr"
	"github.com/m3rciful/logobot/internal/exercises"
	"github.com/m3rciful/logobot/internal/schedule"
	"github.com/m3rciful/logobot/internal/tasks"
)

// Deps are the services the bot drives.
type Deps struct {
	Gate      *access.Gate
	Schedule  *schedule.Service
	Exercises *exercises.Service
	Tasks     *tasks.Service

	Hours      schedule.Hours
	ChannelID  int64
	ChannelURL string

	// Observe receives one call per routed handler.
	Observe router.Observer
	Now     func() time.Time
}

// userNotifier covers the notifications the bot sends outside the gate.
type userNotifier interface {
	SlotCancelled(ctx context.Context, userID int64, s schedule.Slot) error
	TaskAssigned(ctx context.Context, userID int64, t tasks.Task) error
}

// Bot holds handlers and their dialogue state.
type Bot struct {
	gate      *access.Gate
	schedule  *schedule.Service
	exercises *exercises.Service
	tasks     *tasks.Service

	hours      schedule.Hours
	channelID  int64
	channelURL string
	now        func() time.Time

	fsm      state.Manager
	reg      *tg.Registry
	opts     router.Options
	notifier userNotifier
}

var _ ui.FallbackProvider = (*Bot)(nil)

// New builds the bot and registers every command, callback and dialogue step.
func New(d Deps) *Bot {
	b := &Bot{
		gate:       d.Gate,
		schedule:   d.Schedule,
		exercises:  d.Exercises,
		tasks:      d.Tasks,
		hours:      d.Hours,
		channelID:  d.ChannelID,
		channelURL: d.ChannelURL,
		now:        d.Now,
		fsm:        state.NewMemoryManager(),
		reg:        tg.NewRegistry(),
	}
	if b.now == nil {
		b.now = time.Now
	}
	if len(b.hours.Times()) == 0 {
		b.hours = schedule.DefaultHours
	}
	b.opts = router.Options{
		Admin: middleware.AdminOptions{
			IsAdmin:  b.gate.IsAdmin,
			OnReject: b.AdminOnly(),
		},
		Observe: d.Observe,
	}
	b.reg.SetCallbackNotFound(b.UnknownCallback())

	b.registerMenu()
	b.registerAccess()
	b.registerAdmin()
	b.registerSchedule()
	b.registerExercises()
	b.registerTasks()
	return b
}

// Registry exposes the registered commands and callbacks.
func (b *Bot) Registry() *tg.Registry { return b.reg }

// Routes returns the telebot routes for commands, callbacks and text.
func (b *Bot) Routes(_ *tele.Bot) []tg.Route {
	routes := router.CommandRoutes(b.reg, b.opts)
	routes = append(routes, router.CallbackRoute(b.reg, b.opts))
	return append(routes, router.TextRoutes(b.fsm, b.reg, router.TextOptions{
		Options:         b.opts,
		UnknownText:     b.UnknownText(),
		UnknownDocument: b.UnknownDocument(),
	})...)
}

// OnStart binds the running bot as the gate's platform.
func (b *Bot) OnStart(ctx context.Context, rt tg.Runtime) error {
	if rt.Bot == nil {
		return errors.New("bot: runtime without telegram client")
	}
	p := NewPlatform(rt.Bot, b.channelID)
	b.gate.Bind(p, p)
	b.notifier = p
	logger.TWire.InfoContext(ctx, "platform bound",
		slog.String("event", "tg.wire"),
		slog.Int("admins", len(b.gate.Admins())),
	)
	return nil
}

func (b *Bot) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error { return tghelpers.SendHTML(c, textUnknown) }
}

func (b *Bot) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error { return tghelpers.SendHTML(c, textUnknownFile) }
}

func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error { return tghelpers.Toast(c, textExpired) }
}

func (b *Bot) RateLimited() tele.HandlerFunc {
	return func(c tele.Context) error { return tghelpers.Toast(c, textRateLimited) }
}

func (b *Bot) AdminOnly() tele.HandlerFunc {
	return func(c tele.Context) error { return tghelpers.Toast(c, textAdminOnly) }
}

// command registers a command and its keyboard labels.
func (b *Bot) command(name, description string, h tele.HandlerFunc, opts ...func(*tg.Command)) {
	cmd := tg.Command{Handler: h, Description: description}
	for _, o := range opts {
		o(&cmd)
	}
	b.reg.RegisterCommand(name, cmd)
}

func adminOnly(c *tg.Command) { c.AdminOnly = true }

func hidden(c *tg.Command) { c.Hidden = true }

func labels(l ...string) func(*tg.Command) {
	return func(c *tg.Command) { c.Labels = l }
}

// ActionHandler handles a decoded button press.
type ActionHandler func(c tele.Context, a action.Action) error

// callback registers h for kind. Payloads that do not decode get the
// expired-button toast.
func (b *Bot) callback(kind action.Kind, h ActionHandler, wrap ...func(tele.HandlerFunc) tele.HandlerFunc) {
	handler := func(c tele.Context) error {
		a, err := action.Decode(callbacks.Parse(c.Callback()))
		if err != nil {
			logger.TG.WarnContext(tghelpers.BuildContext(c), "bad callback payload",
				slog.String("event", "tg.callback"),
				slog.String("status", "skip"),
				slog.String("err", err.Error()),
			)
			return tghelpers.Toast(c, textExpired)
		}
		return h(c, a)
	}
	for _, w := range wrap {
		handler = w(handler)
	}
	// Duplicates are logged by the registry.
	_ = b.reg.RegisterCallback(string(kind), handler)
}

// admin limits a callback to admins.
func (b *Bot) admin(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.AdminOnlyMiddleware(b.opts.Admin)(h)
}

// gated runs h only for admins and allowed users. Everyone else gets the
// prompt matching their gate decision.
func (b *Bot) gated(h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		d, err := b.gate.CheckAccess(ctx, applicantOf(c.Sender()))
		if err != nil {
			return b.fail(c, err)
		}
		if d.Status.Permitted() {
			return h(c)
		}
		return b.prompt(c, d)
	}
}

func applicantOf(u *tele.User) access.Applicant {
	if u == nil {
		return access.Applicant{}
	}
	return access.Applicant{
		UserID:      u.ID,
		Handle:      u.Username,
		DisplayName: strings.TrimSpace(u.FirstName + " " + u.LastName),
	}
}

// fail reports err to the user. Caller mistakes are answered with the error
// message and swallowed; anything else gets a generic reply and is returned
// for the handler summary.
func (b *Bot) fail(c tele.Context, err error) error {
	msg := textFailed
	switch apperr.CodeOf(err) {
	case apperr.CodeUsage, apperr.CodeNotFound, apperr.CodeConflict, apperr.CodeForbidden:
		if e := apperr.As(err); e != nil {
			msg = e.Message()
		}
		err = nil
	}
	if c.Callback() != nil {
		_ = tghelpers.Toast(c, msg)
	} else {
		_ = tghelpers.SendHTML(c, format.Escape(msg))
	}
	return err
}

// notifyFailed logs a user notification that could not be delivered.
// The admin action that triggered it has already been committed.
func (b *Bot) notifyFailed(c tele.Context, kind string, userID int64, err error) {
	logger.TG.WarnContext(tghelpers.BuildContext(c), "notification failed",
		slog.String("event", "tg.notify"),
		slog.String("status", "fail"),
		slog.String("kind", kind),
		slog.Int64("target_user_id", userID),
		slog.String("err", err.Error()),
	)
}

// senderID is the numeric id of whoever triggered the update.
func senderID(c tele.Context) int64 { return tghelpers.SenderID(c) }

// commandArgs returns the text after the command word.
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	_, rest, _ := strings.Cut(text, " ")
	return strings.TrimSpace(rest)
}
