package router

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/logobot/core/logger"
	tg "github.com/m3rciful/logobot/core/telegram"
	"github.com/m3rciful/logobot/core/telegram/middleware"
)

// CommandRoutes binds every registered slash command. Admin-only commands
// are rejected for everyone else.
func CommandRoutes(reg *tg.Registry, opts Options) []tg.Route {
	if reg == nil {
		return nil
	}
	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for name, def := range cmds {
		h := middleware.WithAdminCheck(opts.Admin, def.AdminOnly, def.Handler)
		s := summary{handler: normalizeHandlerName(name)}
		routes = append(routes, tg.Route{
			Endpoint: name,
			Handler: func(c tele.Context) error {
				return opts.run(c, s, func() error { return h(c) })
			},
		})
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
