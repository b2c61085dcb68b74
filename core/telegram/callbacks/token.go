// Package callbacks extracts workflow tokens from inline button presses.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Token returns the callback data of cb as a workflow token. Buttons built by
// the keyboard package carry raw data; data in telebot's \f<unique>|<payload>
// encoding is reduced to "<unique>|<payload>".
func Token(cb *tele.Callback) string {
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		if cb.Data == "" {
			return cb.Unique
		}
		return cb.Unique + "|" + cb.Data
	}
	return strings.TrimPrefix(cb.Data, "\f")
}

// MessageID returns the id of the message the pressed button belongs to, or 0.
func MessageID(cb *tele.Callback) int {
	if cb == nil || cb.Message == nil {
		return 0
	}
	return cb.Message.ID
}
