package router

import (
	"context"

	tele "gopkg.in/telebot.v4"
)

// Update is one user input reduced to what the conversation layer needs.
// Text carries either the message text or the callback token of a pressed button.
type Update struct {
	UserName  string
	ChatID    int64
	Text      string
	MessageID int
	Callback  bool
}

// Sink consumes updates routed from Telegram.
type Sink interface {
	HandleUpdate(ctx context.Context, u Update) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, u Update) error

// HandleUpdate calls f.
func (f SinkFunc) HandleUpdate(ctx context.Context, u Update) error {
	return f(ctx, u)
}

func baseUpdate(c tele.Context) Update {
	var u Update
	if user := c.Sender(); user != nil {
		u.UserName = user.Username
	}
	if chat := c.Chat(); chat != nil {
		u.ChatID = chat.ID
	}
	return u
}
