package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/accbot/core/logger"
	tghelpers "github.com/m3rciful/accbot/core/telegram/helpers"
	"github.com/m3rciful/accbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// turnContext returns the request context of c carrying the message counters,
// so sends made through the gateway show up in the handler summary.
func turnContext(c tele.Context) context.Context {
	return middleware.WithCounters(tghelpers.BuildContext(c), middleware.CountersOf(c))
}

// turn logs one "handler.handled" line per routed update.
type turn struct {
	c       tele.Context
	handler string
	start   time.Time
	extras  []slog.Attr
}

func newTurn(c tele.Context, handler string, extras ...slog.Attr) *turn {
	tghelpers.WithHandler(c, handler)
	return &turn{c: c, handler: handler, start: time.Now(), extras: extras}
}

// forward runs fn and logs its result.
func (t *turn) forward(fn func() error) error {
	err := fn()
	if err != nil {
		t.log("fail", "failed", err)
	} else {
		t.log("ok", "forwarded", nil)
	}
	return err
}

// skip logs an update that was not handed to the conversation.
func (t *turn) skip() {
	t.log("skip", "ignored", nil)
}

func (t *turn) log(status, outcome string, err error) {
	msgs, kb := middleware.GetCounters(t.c)
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", t.handler),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(t.start)).Milliseconds()),
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	attrs = append(attrs, t.extras...)
	logger.LogEvent(tghelpers.BuildContext(t.c), logger.Component("tg"), level, "handler.handled", attrs...)
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

// errorCode names err for log filtering: TG_<code> for Bot API errors,
// TIMEOUT for expired deadlines, otherwise the error type.
func errorCode(err error) string {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("TG_%d", apiErr.Code)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "TIMEOUT"
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
