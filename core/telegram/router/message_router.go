package router

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/logobot/core/telegram"
	tghelpers "github.com/m3rciful/logobot/core/telegram/helpers"
	"github.com/m3rciful/logobot/core/telegram/middleware"
)

// FSM is the part of the dialogue manager the text route needs.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for text and document updates.
type TextOptions struct {
	Options
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes routes plain text: an active dialogue first, then keyboard
// labels of registered commands, then the fallbacks.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	inDialogue := func(c tele.Context) bool {
		return fsm != nil && fsm.InProgress(tghelpers.SenderID(c))
	}

	text := func(c tele.Context) error {
		if inDialogue(c) {
			return opts.run(c, summary{handler: "fsm"}, func() error { return fsm.ManagerHandler(c) })
		}
		if reg != nil {
			if name, cmd, ok := reg.LookupCommand(c.Text()); ok {
				h := middleware.WithAdminCheck(opts.Admin, cmd.AdminOnly, cmd.Handler)
				return opts.run(c, summary{handler: normalizeHandlerName(name)}, func() error { return h(c) })
			}
			if fb := reg.TextFallback(); fb != nil {
				return opts.run(c, summary{handler: "fallback"}, func() error { return fb(c) })
			}
		}
		if opts.UnknownText != nil {
			return opts.run(c, summary{handler: "unknown_text"}, func() error { return opts.UnknownText(c) })
		}
		return opts.run(c, summary{handler: "unknown_text", status: "skip", outcome: "ok"}, func() error { return nil })
	}

	document := func(c tele.Context) error {
		if inDialogue(c) {
			return opts.run(c, summary{handler: "fsm_document"}, func() error { return fsm.ManagerHandler(c) })
		}
		if opts.UnknownDocument != nil {
			return opts.run(c, summary{handler: "unexpected_document"}, func() error { return opts.UnknownDocument(c) })
		}
		return opts.run(c, summary{handler: "unexpected_document", status: "skip", outcome: "ok"}, func() error { return nil })
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: text},
		{Endpoint: tele.OnDocument, Handler: document},
	}
}
