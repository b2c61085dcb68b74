package router

import (
	"log/slog"

	"github.com/m3rciful/accbot/core/logger"
	tg "github.com/m3rciful/accbot/core/telegram"
	"github.com/m3rciful/accbot/core/telegram/callbacks"
	"github.com/m3rciful/accbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute returns a handler that answers every button press and forwards
// its token together with the id of the message carrying the keyboard.
func CallbackRoute(sink Sink) tg.Route {
	handler := func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}

		token := callbacks.Token(cb)
		t := newTurn(c, "callback", slog.String("token", logger.SanitizeLimit(token, 64)))

		// Stops the client spinner; failures here do not affect the turn.
		_ = c.Respond()

		if sink == nil || token == "" {
			t.skip()
			return nil
		}

		u := baseUpdate(c)
		u.Text = token
		u.MessageID = callbacks.MessageID(cb)
		u.Callback = true
		return t.forward(func() error {
			return sink.HandleUpdate(turnContext(c), u)
		})
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
