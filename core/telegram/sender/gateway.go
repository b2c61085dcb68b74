// Package sender performs outbound Telegram calls for workflow code.
// Calls are synchronous so the messages of one turn keep their order;
// transport-level retries happen in the HTTP client.
package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/accbot/core/logger"
	"github.com/m3rciful/accbot/core/telegram/keyboard"
	"github.com/m3rciful/accbot/core/telegram/middleware"
	"github.com/m3rciful/accbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// API is the subset of *tele.Bot used by Gateway.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	EditReplyMarkup(msg tele.Editable, markup *tele.ReplyMarkup) (*tele.Message, error)
}

// Gateway sends and edits chat messages.
type Gateway struct {
	api API
}

// NewGateway wraps a bot API.
func NewGateway(api API) *Gateway {
	return &Gateway{api: api}
}

// Send posts a new message to chatID.
func (g *Gateway) Send(ctx context.Context, chatID int64, text string, markup *keyboard.Markup) error {
	opts := []interface{}{}
	if tm := markup.Tele(); tm != nil {
		opts = append(opts, tm)
	}
	return g.do(ctx, "send", chatID, !markup.Empty(), func() error {
		_, err := g.api.Send(tele.ChatID(chatID), text, opts...)
		return err
	})
}

// EditText replaces text and inline keyboard of an existing message.
func (g *Gateway) EditText(ctx context.Context, chatID int64, messageID int, text string, markup *keyboard.Markup) error {
	msg := &tele.StoredMessage{ChatID: chatID, MessageID: strconv.Itoa(messageID)}
	opts := []interface{}{}
	if tm := markup.Tele(); tm != nil {
		opts = append(opts, tm)
	}
	return g.do(ctx, "edit_text", chatID, !markup.Empty(), func() error {
		_, err := g.api.Edit(msg, text, opts...)
		return err
	})
}

// EditMarkup replaces only the inline keyboard of an existing message.
func (g *Gateway) EditMarkup(ctx context.Context, chatID int64, messageID int, markup *keyboard.Markup) error {
	msg := &tele.StoredMessage{ChatID: chatID, MessageID: strconv.Itoa(messageID)}
	return g.do(ctx, "edit_markup", chatID, !markup.Empty(), func() error {
		_, err := g.api.EditReplyMarkup(msg, markup.Tele())
		return err
	})
}

func (g *Gateway) do(ctx context.Context, action string, chatID int64, hasKB bool, run func() error) error {
	start := time.Now()
	err := run()
	if err != nil && isNotModified(err) {
		logger.Debug(ctx, "tg.sender", "send.unchanged",
			slog.String("action", action),
			slog.Int64("chat_id", chatID),
		)
		return nil
	}
	if err != nil {
		logger.Error(ctx, "tg.sender", "send.fail",
			slog.String("status", "fail"),
			slog.String("action", action),
			slog.Int64("chat_id", chatID),
			slog.String("err", sanitizeErrorMessage(err)),
			slog.String("error_kind", classifyError(err)),
			slog.Duration("duration", time.Since(start)),
		)
		return err
	}
	middleware.CountersFrom(ctx).Inc(hasKB)
	logger.Debug(ctx, "tg.sender", "send.success",
		slog.String("action", action),
		slog.Int64("chat_id", chatID),
		slog.Bool("kb", hasKB),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// isNotModified recognises Telegram's reply to an edit that changes nothing,
// which happens when a prompt is re-rendered unchanged.
func isNotModified(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "message is not modified")
}

// IsTransient reports whether err is a network or server-side failure that may
// succeed later, as opposed to a rejected request.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if netutil.ShouldRetry(err) {
		return true
	}
	switch classifyError(err) {
	case "timeout", "dns", "dial", "flood", "http_5xx":
		return true
	}
	return false
}

func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "dial"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return "timeout"
	}

	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return "tls"
	}

	status := httpStatusFromError(err)
	switch {
	case status == http.StatusTooManyRequests:
		return "flood"
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// sanitizeErrorMessage prevents accidental leakage of Telegram bot tokens in logs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

func httpStatusFromError(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}

	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		return http.StatusTooManyRequests
	}

	msg := err.Error()
	lastOpen := strings.LastIndex(msg, "(")
	lastClose := strings.LastIndex(msg, ")")
	if lastOpen >= 0 && lastClose > lastOpen+1 {
		if code, convErr := strconv.Atoi(strings.TrimSpace(msg[lastOpen+1 : lastClose])); convErr == nil {
			return code
		}
	}
	return 0
}
