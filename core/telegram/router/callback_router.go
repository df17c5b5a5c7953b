package router

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/logobot/core/telegram"
	"github.com/m3rciful/logobot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/logobot/core/telegram/helpers"
)

// CallbackRoute dispatches inline button presses by unique key. The callback
// is answered after the handler unless the handler already showed a toast.
func CallbackRoute(reg *tg.Registry, opts Options) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		defer tghelpers.Answer(c)

		key, _ := callbacks.Parse(c.Callback())
		s := summary{
			handler: "callback." + normalizeHandlerName(key),
			extras:  []slog.Attr{slog.String("cb_key", key)},
		}

		h, ok := reg.GetCallback(key)
		if !ok || h == nil {
			h = reg.CallbackNotFound()
			s.status = "skip"
			s.extras = append(s.extras, slog.String("reason", "not_found"))
		}
		if h == nil {
			return nil
		}
		return opts.run(c, s, func() error { return h(c) })
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: handler}
}
