package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/accbot/core/config"
	"github.com/m3rciful/accbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// LimitedNotice is shown as a toast when a button press is rate limited.
const LimitedNotice = "Lugn i stormen, försök igen om en stund"

// AnswerLimited answers a throttled button press so the client does not
// wait for a reply. Throttled messages are dropped silently.
func AnswerLimited(c tele.Context) error {
	if c.Callback() == nil {
		return nil
	}
	return c.Respond(&tele.CallbackResponse{Text: LimitedNotice})
}

// DefaultMiddlewares builds the middleware chain: panic recovery, the per
// user flood guard when configured, then request logging and metrics.
func DefaultMiddlewares(cfg *coreconfig.Config) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}

	if cfg != nil && cfg.RateLimit.IntervalMS > 0 {
		ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, t := range cfg.RateLimit.ExcludeUpdates {
			ex[t] = struct{}{}
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
				Exclude:   ex,
				OnLimited: AnswerLimited,
			}),
		})
	}

	return append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
}
