package telegram

import (
	"log/slog"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/m3rciful/accbot/core/logger"
	"github.com/m3rciful/accbot/core/telegram/netutil"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 90 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
	defaultRetryAttempts     = 2
	defaultRetryBackoff      = 500 * time.Millisecond
)

// Headroom on top of the long poll window for the API to answer.
const (
	responseSlack = 5 * time.Second
	clientSlack   = 15 * time.Second
)

// repeatable lists Bot API methods whose effect does not change when the
// request is delivered twice. Other methods, sendMessage above all, are only
// retried when the connection was never established.
var repeatable = map[string]struct{}{
	"getMe":                  {},
	"getUpdates":             {},
	"setMyCommands":          {},
	"deleteWebhook":          {},
	"setWebhook":             {},
	"answerCallbackQuery":    {},
	"editMessageText":        {},
	"editMessageReplyMarkup": {},
}

// BuildHTTPClient returns an HTTP client for Telegram API calls. pollTimeout is
// the long poll window; getUpdates holds the response for that long, so the
// header and client timeouts are stretched past it.
func BuildHTTPClient(pollTimeout time.Duration) *http.Client {
	if pollTimeout <= 0 {
		pollTimeout = LongPollTimeout(0)
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ResponseHeaderTimeout: pollTimeout + responseSlack,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout: pollTimeout + clientSlack,
		Transport: &retryTransport{
			base:       transport,
			maxRetries: defaultRetryAttempts,
			backoff:    defaultRetryBackoff,
		},
	}
}

type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

// apiMethod extracts the Bot API method from a .../bot<token>/<method> URL.
func apiMethod(req *http.Request) string {
	if req.URL == nil {
		return ""
	}
	return path.Base(req.URL.Path)
}

func (t *retryTransport) retryable(method string, err error) bool {
	if _, ok := repeatable[method]; ok {
		return netutil.ShouldRetry(err)
	}
	return netutil.NotDelivered(err)
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	method := apiMethod(req)
	attempts := t.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		currReq := req
		if attempt > 1 {
			currReq = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				currReq.Body = body
			} else if req.Body != nil && req.Body != http.NoBody {
				return nil, lastErr
			}
		}

		resp, err := base.RoundTrip(currReq)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt == attempts || !t.retryable(method, err) {
			break
		}

		delay := t.backoff * time.Duration(attempt)
		logger.LogEvent(req.Context(), logger.TG, slog.LevelWarn, "tg.http_retry",
			slog.String("status", "retry"),
			slog.String("method", method),
			slog.Int("attempt", attempt),
			slog.Int64("backoff_ms", delay.Milliseconds()),
			slog.String("err", logger.SanitizeLimit(err.Error(), 128)),
		)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}
