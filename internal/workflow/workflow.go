// Package workflow runs per-user conversations: each user owns a Manager whose
// active Command receives every input, looks it up in an exact-match transition
// table and either switches command, steps a sub-workflow or runs a local step.
package workflow

import (
	"context"
	"errors"

	"github.com/m3rciful/accbot/core/telegram/keyboard"
)

// Kind names a command by its menu string.
type Kind string

const (
	KindRoot          Kind = "/start"
	KindNewCategory   Kind = "/ny_kategori"
	KindNewPurchase   Kind = "/ny_post"
	KindStatistics    Kind = "/statistik"
	KindListRecords   Kind = "/visa_poster"
	KindCorrectRecord Kind = "/korrigera_post"
)

// MenuKinds lists every command reachable from the bot menu.
var MenuKinds = []Kind{
	KindRoot,
	KindNewCategory,
	KindNewPurchase,
	KindStatistics,
	KindListRecords,
	KindCorrectRecord,
}

var (
	// ErrUnreachable marks a state value outside its declared set. It aborts the
	// current turn only.
	ErrUnreachable = errors.New("workflow: unreachable state")
	// ErrDuplicateToken is returned when a transition table already holds a token.
	ErrDuplicateToken = errors.New("workflow: duplicate token")
	// ErrUnknownKind is returned by a Factory for a kind it cannot build.
	ErrUnknownKind = errors.New("workflow: unknown command kind")
)

// Input is one turn of user input. MessageID is set for button presses and
// points at the message that carried the keyboard.
type Input struct {
	UserName  string
	ChatID    int64
	Text      string
	MessageID int
}

// Messenger is the outbound side of the chat.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string, markup *keyboard.Markup) error
	EditText(ctx context.Context, chatID int64, messageID int, text string, markup *keyboard.Markup) error
	EditMarkup(ctx context.Context, chatID int64, messageID int, markup *keyboard.Markup) error
}
