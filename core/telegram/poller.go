package telegram

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/accbot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollSeconds = 10

// AllowedUpdates are the update kinds the bot consumes: typed messages and
// inline keyboard presses. Everything else is filtered out by Telegram.
var AllowedUpdates = []string{"message", "callback_query"}

// WebhookOptions declares webhook listener settings.
type WebhookOptions struct {
	Listen string
	Port   int
	URL    string
	// SecretToken makes the listener reject requests without a matching
	// X-Telegram-Bot-Api-Secret-Token header.
	SecretToken string
}

// PollerOptions configures BuildPoller.
type PollerOptions struct {
	RunMode                string
	LongPollTimeoutSeconds int
	Webhook                WebhookOptions
}

// LongPollTimeout resolves the configured long poll window.
func LongPollTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		seconds = defaultLongPollSeconds
	}
	return time.Duration(seconds) * time.Second
}

// IsWebhook reports whether runMode selects the webhook listener.
func IsWebhook(runMode string) bool {
	return strings.EqualFold(strings.TrimSpace(runMode), coreconfig.RunModeWebhook)
}

// BuildPoller returns a webhook listener or a long poller. Webhook mode
// requires a public URL and a port.
func BuildPoller(opts PollerOptions) (tele.Poller, error) {
	if !IsWebhook(opts.RunMode) {
		return &tele.LongPoller{
			Timeout:        LongPollTimeout(opts.LongPollTimeoutSeconds),
			AllowedUpdates: AllowedUpdates,
		}, nil
	}
	if opts.Webhook.URL == "" || opts.Webhook.Port <= 0 {
		return nil, fmt.Errorf("telegram: webhook mode needs url and port, got %q and %d", opts.Webhook.URL, opts.Webhook.Port)
	}
	return &tele.Webhook{
		Listen:         fmt.Sprintf("%s:%d", opts.Webhook.Listen, opts.Webhook.Port),
		Endpoint:       &tele.WebhookEndpoint{PublicURL: opts.Webhook.URL},
		SecretToken:    opts.Webhook.SecretToken,
		AllowedUpdates: AllowedUpdates,
	}, nil
}
