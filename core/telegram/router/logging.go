// Package router turns registry entries into telebot routes that log one
// summary line per handled update.
package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/logobot/core/logger"
	tghelpers "github.com/m3rciful/logobot/core/telegram/helpers"
	"github.com/m3rciful/logobot/core/telegram/middleware"
)

// Observer receives the outcome of every routed handler.
type Observer func(handler, outcome string, took time.Duration)

// Options are shared by all route builders.
type Options struct {
	Admin   middleware.AdminOptions
	Observe Observer
}

type summary struct {
	handler string
	status  string
	outcome string
	extras  []slog.Attr
}

func (o Options) run(c tele.Context, s summary, fn func() error) error {
	start := time.Now()
	tghelpers.WithHandler(c, s.handler)
	err := fn()
	o.log(c, s, start, err)
	return err
}

func (o Options) log(c tele.Context, s summary, start time.Time, err error) {
	ctx := tghelpers.WithHandler(c, s.handler)
	msgs, kb := middleware.GetCounters(c)
	took := logger.Took(start)

	if s.status == "" {
		s.status = logger.Status(err)
	}
	if s.outcome == "" {
		s.outcome = logger.Status(err)
	}
	attrs := []slog.Attr{
		slog.String("status", s.status),
		slog.String("handler", s.handler),
		slog.String("outcome", s.outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Int64("duration_ms", took.Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	attrs = append(attrs, s.extras...)
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "handler.handled", attrs...)

	if o.Observe != nil {
		o.Observe(s.handler, s.outcome, took)
	}
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

type coder interface{ Code() string }

func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
