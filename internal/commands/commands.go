// Package commands holds the menu level conversations of the bot. Every
// command is built fresh on switch and owns its own state.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/accbot/core/logger"
	"github.com/m3rciful/accbot/internal/events"
	"github.com/m3rciful/accbot/internal/storage"
	"github.com/m3rciful/accbot/internal/workflow"
)

// Store is the storage used by the commands.
type Store interface {
	Categories(ctx context.Context) ([]storage.Category, error)
	Category(ctx context.Context, id int64) (storage.Category, error)
	CreateCategory(ctx context.Context, name string) (storage.Category, bool, error)
	AddPurchase(ctx context.Context, p storage.Purchase) (storage.Purchase, error)
	Purchase(ctx context.Context, id int64) (storage.Purchase, error)
	UpdatePurchase(ctx context.Context, p storage.Purchase) error
	Purchases(ctx context.Context, from, to time.Time, minAmount decimal.Decimal) ([]storage.Purchase, error)
	SumByCategory(ctx context.Context, from, to time.Time) ([]storage.CategoryTotal, error)
}

// Deps are the collaborators shared by all commands.
type Deps struct {
	Messenger workflow.Messenger
	Store     Store
	Events    events.Publisher
	// Currency is appended to every printed amount.
	Currency string
	// Now picks the month shown by the first calendar prompt.
	Now func() time.Time
}

// Descriptions are the Swedish menu texts of the commands.
var Descriptions = map[workflow.Kind]string{
	workflow.KindRoot:          "Huvudmeny",
	workflow.KindNewCategory:   "Skapa en ny kategori",
	workflow.KindNewPurchase:   "Registrera det förbrukade beloppet",
	workflow.KindStatistics:    "Få statistik per kategori",
	workflow.KindListRecords:   "Visa poster",
	workflow.KindCorrectRecord: "Korrigera inmatningen",
}

// Cancel returns to the root menu from any command that offers it.
const Cancel = "Avbryt"

// NewFactory returns the workflow.Factory that builds every menu command.
func NewFactory(deps Deps) workflow.Factory {
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return func(user string, kind workflow.Kind) (workflow.Command, error) {
		switch kind {
		case workflow.KindRoot:
			return NewRoot(deps), nil
		case workflow.KindNewCategory:
			return NewCategory(deps)
		case workflow.KindNewPurchase:
			return NewPurchase(deps)
		case workflow.KindStatistics:
			return NewStatistics(deps)
		case workflow.KindListRecords:
			return NewListRecords(deps)
		case workflow.KindCorrectRecord:
			return NewCorrectRecord(deps)
		}
		return nil, fmt.Errorf("%w: %s", workflow.ErrUnknownKind, kind)
	}
}

// cancelTable is the menu table plus the Cancel token.
func cancelTable() *workflow.Table {
	t := workflow.NewMenuTable()
	_ = t.Add(Cancel, workflow.Switch(workflow.KindRoot))
	return t
}

// publish sends ev and only logs failures; a saved purchase stays saved.
func publish(ctx context.Context, pub events.Publisher, kind events.Kind, p storage.Purchase) {
	ev := events.Event{
		Kind:       kind,
		PurchaseID: p.ID,
		CategoryID: p.CategoryID,
		Category:   p.CategoryName,
		User:       p.User,
		Amount:     p.Amount,
		Comment:    p.Comment,
		CreatedAt:  p.CreatedAt,
	}
	if err := pub.Publish(ctx, ev); err != nil {
		logger.Warn(ctx, "events", "event.publish_fail",
			slog.String("status", "fail"),
			slog.String("kind", string(kind)),
			slog.Int64("purchase_id", p.ID),
			slog.String("err", err.Error()),
		)
	}
}

// plain drops the message id so the next prompt is sent below earlier output
// instead of replacing the message the button belonged to.
func plain(in workflow.Input) workflow.Input {
	in.MessageID = 0
	return in
}
