package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/accbot/core/logger"
	"github.com/m3rciful/accbot/internal/events"
	"github.com/m3rciful/accbot/internal/storage"
	"github.com/m3rciful/accbot/internal/workflow"
)

// NewPurchaseCommand records purchases one after another: category, amount,
// comment, save, and back to the category keyboard.
type NewPurchaseCommand struct {
	deps  Deps
	table *workflow.Table
	form  *purchaseForm
}

// NewPurchase builds the command.
func NewPurchase(deps Deps) (*NewPurchaseCommand, error) {
	c := &NewPurchaseCommand{
		deps:  deps,
		table: cancelTable(),
		form:  &purchaseForm{deps: deps},
	}
	if err := c.table.Add(SkipComment, workflow.Local(c.skipComment)); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *NewPurchaseCommand) Name() workflow.Kind { return workflow.KindNewPurchase }
func (c *NewPurchaseCommand) Transitions() *workflow.Table { return c.table }

func (c *NewPurchaseCommand) OnEntered(ctx context.Context, _ workflow.Switcher, in workflow.Input) error {
	c.form.draft = storage.Purchase{}
	return c.form.promptCategory(ctx, in, chooseCategory)
}

func (c *NewPurchaseCommand) Handle(ctx context.Context, sw workflow.Switcher, in workflow.Input) error {
	return workflow.Dispatch(ctx, c, sw, in)
}

// Fallback feeds the form.
func (c *NewPurchaseCommand) Fallback(ctx context.Context, _ workflow.Switcher, in workflow.Input) error {
	done, err := c.form.handle(ctx, in)
	if err != nil || !done {
		return err
	}
	return c.save(ctx, in)
}

func (c *NewPurchaseCommand) skipComment(ctx context.Context, in workflow.Input) error {
	if c.form.skipComment() {
		return c.save(ctx, in)
	}
	_, err := c.form.handle(ctx, in)
	return err
}

func (c *NewPurchaseCommand) save(ctx context.Context, in workflow.Input) error {
	draft := c.form.draft
	draft.User = in.UserName
	saved, err := c.deps.Store.AddPurchase(ctx, draft)
	if errors.Is(err, storage.ErrNotFound) {
		return c.form.promptCategory(ctx, in, invalidCategory)
	}
	if err != nil {
		return err
	}
	logger.Info(ctx, "workflow", "purchase.saved",
		slog.String("status", "ok"),
		slog.Int64("purchase_id", saved.ID),
		slog.Int64("category_id", saved.CategoryID),
	)
	publish(ctx, c.deps.Events, events.KindSaved, saved)
	c.form.draft = storage.Purchase{}
	return c.form.promptCategory(ctx, in, recordSaved+"\n\n"+chooseCategory)
}
