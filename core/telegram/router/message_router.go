package router

import (
	"log/slog"

	tg "github.com/m3rciful/accbot/core/telegram"
	"github.com/m3rciful/accbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// TextOptions controls fallback behaviour for non-text messages.
type TextOptions struct {
	UnknownDocument tele.HandlerFunc
}

// TextRoutes forwards every plain text message to sink as typed, so menu and
// cancel tokens only match exactly. Documents are not part of the conversation
// and go to opts.UnknownDocument when set.
func TextRoutes(sink Sink, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		text := c.Text()
		t := newTurn(c, "text", slog.Int("len", len(text)))
		if sink == nil {
			t.skip()
			return nil
		}
		u := baseUpdate(c)
		u.Text = text
		return t.forward(func() error {
			return sink.HandleUpdate(turnContext(c), u)
		})
	}

	docHandler := func(c tele.Context) error {
		t := newTurn(c, "unexpected_document")
		if opts.UnknownDocument == nil {
			t.skip()
			return nil
		}
		return t.forward(func() error {
			return opts.UnknownDocument(c)
		})
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnDocument,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(docHandler)),
		},
	}
}
