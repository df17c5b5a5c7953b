// Package helpers holds small per-update utilities: request context and replies.
package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/logobot/core/logger"
	"github.com/m3rciful/logobot/core/telegram/sender"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes replies through d. nil sends inline.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	err := disp.Enqueue(ctx, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

func htmlOpts(markup []*tele.ReplyMarkup) *tele.SendOptions {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML, DisableWebPagePreview: true}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return opts
}

// SendHTML queues an HTML message to the current chat.
func SendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := htmlOpts(markup)
	return sendAsync(c, "send.html", "sendMessage", func() error {
		return c.Send(text, opts)
	})
}

// EditOrSendHTML edits the message behind a callback, or sends a new one for plain messages.
// Edits run inline so a following callback on the same message sees the new markup.
func EditOrSendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := htmlOpts(markup)
	if c.Callback() == nil {
		return SendHTML(c, text, markup...)
	}
	err := c.Edit(text, opts)
	if errors.Is(err, tele.ErrSameMessageContent) {
		return nil
	}
	return err
}

// Toast answers the pending callback with a short notice. Plain messages get a reply instead.
func Toast(c tele.Context, text string) error {
	if c.Callback() == nil {
		return SendHTML(c, text)
	}
	c.Set(answeredKey, true)
	return c.Respond(&tele.CallbackResponse{Text: text})
}

const answeredKey = "cb_answered"

// Answer acknowledges the callback unless a handler already did.
func Answer(c tele.Context) {
	if c.Callback() == nil {
		return
	}
	if done, _ := c.Get(answeredKey).(bool); done {
		return
	}
	c.Set(answeredKey, true)
	_ = c.Respond()
}
