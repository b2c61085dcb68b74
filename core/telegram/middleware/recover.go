package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/accbot/core/logger"
	tghelpers "github.com/m3rciful/accbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware turns a handler panic into a logged failure. A pressed
// inline button is still answered so the client stops its spinner. The
// conversation keeps its state; the next update is processed normally.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			ctx := tghelpers.BuildContext(c)
			logger.LogEvent(ctx, logger.TG, slog.LevelError, "tg.panic",
				slog.String("status", "fail"),
				slog.String("err", logger.SanitizeLimit(fmt.Sprint(r), 256)),
				slog.String("stack", string(debug.Stack())),
			)
			if c.Callback() != nil {
				if rerr := c.Respond(); rerr != nil {
					logger.Debug(ctx, "tg", "tg.panic_respond", slog.String("err", rerr.Error()))
				}
			}
			err = nil
		}()
		return next(c)
	}
}
