package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/accbot/core/logger"
	"github.com/m3rciful/accbot/core/telegram/keyboard"
	"github.com/m3rciful/accbot/internal/events"
	"github.com/m3rciful/accbot/internal/storage"
	"github.com/m3rciful/accbot/internal/workflow"
)

const (
	idPrompt      = "Skriv in ID"
	invalidID     = "Ogiltigt val, ange ett ID från listan:"
	correctHeader = "Post %d: %s%s - %s.\n" + chooseCategory
)

type correctStage int

const (
	correctListing correctStage = iota
	correctID
	correctForm
)

// CorrectRecordCommand lists records of a period, then replaces category,
// amount and comment of the records picked by id, one after another.
type CorrectRecordCommand struct {
	deps    Deps
	table   *workflow.Table
	listing *recordListing
	form    *purchaseForm
	stage   correctStage
}

// NewCorrectRecord builds the command.
func NewCorrectRecord(deps Deps) (*CorrectRecordCommand, error) {
	c := &CorrectRecordCommand{
		deps:  deps,
		table: cancelTable(),
		form:  &purchaseForm{deps: deps},
	}
	l, err := newRecordListing(deps, c.table)
	if err != nil {
		return nil, err
	}
	c.listing = l
	if err := c.table.Add(SkipComment, workflow.Local(c.skipComment)); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CorrectRecordCommand) Name() workflow.Kind { return workflow.KindCorrectRecord }
func (c *CorrectRecordCommand) Transitions() *workflow.Table { return c.table }

func (c *CorrectRecordCommand) OnEntered(ctx context.Context, _ workflow.Switcher, in workflow.Input) error {
	c.stage = correctListing
	return c.listing.start(ctx, in)
}

func (c *CorrectRecordCommand) Handle(ctx context.Context, sw workflow.Switcher, in workflow.Input) error {
	return workflow.Dispatch(ctx, c, sw, in)
}

func (c *CorrectRecordCommand) Fallback(ctx context.Context, _ workflow.Switcher, in workflow.Input) error {
	switch c.stage {
	case correctListing:
		done, err := c.listing.handle(ctx, in)
		if err != nil || !done {
			return err
		}
		return c.promptID(ctx, in, idPrompt)
	case correctID:
		return c.pick(ctx, in)
	case correctForm:
		done, err := c.form.handle(ctx, in)
		if err != nil || !done {
			return err
		}
		return c.save(ctx, in)
	}
	return fmt.Errorf("%w: correct stage %d", workflow.ErrUnreachable, c.stage)
}

func (c *CorrectRecordCommand) Accepts(sub workflow.Subworkflow) bool {
	return c.stage == correctListing && c.listing.accepts(sub)
}

func (c *CorrectRecordCommand) Resume(ctx context.Context, _ workflow.Switcher, in workflow.Input, result any) error {
	return c.listing.resume(ctx, in, result)
}

func (c *CorrectRecordCommand) skipComment(ctx context.Context, in workflow.Input) error {
	if c.stage == correctForm && c.form.skipComment() {
		return c.save(ctx, in)
	}
	return c.Fallback(ctx, nil, in)
}

func (c *CorrectRecordCommand) promptID(ctx context.Context, in workflow.Input, text string) error {
	c.stage = correctID
	return c.deps.Messenger.Send(ctx, in.ChatID, text, keyboard.Reply([]string{Cancel}))
}

func (c *CorrectRecordCommand) pick(ctx context.Context, in workflow.Input) error {
	id, err := strconv.ParseInt(strings.TrimSpace(in.Text), 10, 64)
	if err != nil || id <= 0 {
		return c.promptID(ctx, in, invalidID)
	}
	p, err := c.deps.Store.Purchase(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return c.promptID(ctx, in, invalidID)
	}
	if err != nil {
		return err
	}
	c.form.draft = p
	c.stage = correctForm
	return c.form.promptCategory(ctx, in,
		fmt.Sprintf(correctHeader, p.ID, p.Amount.StringFixed(2), c.deps.Currency, p.CategoryName))
}

func (c *CorrectRecordCommand) save(ctx context.Context, in workflow.Input) error {
	draft := c.form.draft
	err := c.deps.Store.UpdatePurchase(ctx, draft)
	if errors.Is(err, storage.ErrNotFound) {
		return c.promptID(ctx, in, invalidID)
	}
	if err != nil {
		return err
	}
	logger.Info(ctx, "workflow", "purchase.corrected",
		slog.String("status", "ok"),
		slog.Int64("purchase_id", draft.ID),
		slog.Int64("category_id", draft.CategoryID),
	)
	publish(ctx, c.deps.Events, events.KindCorrected, draft)
	c.form.draft = storage.Purchase{}
	return c.promptID(ctx, in, recordSaved+"\n\n"+idPrompt)
}
