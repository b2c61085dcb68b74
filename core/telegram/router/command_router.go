package router

import (
	tg "github.com/m3rciful/accbot/core/telegram"
	"github.com/m3rciful/accbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Forward returns a command handler that hands the canonical command name to
// sink as the update text, so "/start@bot payload" arrives as "/start".
func Forward(sink Sink, command string) tele.HandlerFunc {
	return func(c tele.Context) error {
		if sink == nil {
			return nil
		}
		u := baseUpdate(c)
		u.Text = command
		return sink.HandleUpdate(turnContext(c), u)
	}
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		name := normalizeHandlerName(cmd)
		inner := def.Handler
		h := func(c tele.Context) error {
			return newTurn(c, name).forward(func() error {
				return inner(c)
			})
		}
		h = middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
		for _, endpoint := range def.Endpoints(cmd) {
			routes = append(routes, tg.Route{Endpoint: endpoint, Handler: h})
		}
	}
	return routes
}
