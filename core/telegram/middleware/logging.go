package middleware

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/accbot/core/logger"
	"github.com/m3rciful/accbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/accbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// seenUpdates remembers update ids for a short while. The logger wraps both
// the global chain and every route, so one update passes it twice.
type seenUpdates struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[int]time.Time
}

var receipts = &seenUpdates{ttl: 10 * time.Second, seen: make(map[int]time.Time)}

// first reports whether id is new and records it.
func (s *seenUpdates) first(id int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, ts := range s.seen {
		if now.Sub(ts) > s.ttl {
			delete(s.seen, k)
		}
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = now
	return true
}

// LoggerMiddleware builds the request context and logs one receipt line per
// update. Typed text is logged by length only since it carries amounts and
// comments; commands and button tokens are logged as is.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		upd := c.Update()
		if receipts.first(upd.ID, time.Now()) {
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", receiptAttrs(c)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		attrs = append(attrs, slog.String("token", logger.SanitizeLimit(callbacks.Token(upd.Callback), 64)))
	case upd.Message != nil:
		text := c.Text()
		if strings.HasPrefix(text, "/") {
			attrs = append(attrs, slog.String("command", logger.SanitizeLimit(text, 64)))
		} else if text != "" {
			attrs = append(attrs, slog.Int("len", len(text)))
		}
	}
	return attrs
}
