package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/accbot/core/logger"
	"github.com/m3rciful/accbot/core/telegram/keyboard"
	"github.com/m3rciful/accbot/internal/workflow"
)

const (
	categoryPrompt  = "Ange namnet på den nya kategorin:"
	categoryCreated = "Kategori \"%s\" har skapats."
	categoryExists  = "Kategori \"%s\" finns redan."
	categoryTooLong = "Namnet får vara högst %d tecken."

	maxCategoryName = 128
)

// NewCategoryCommand creates categories until the user cancels.
type NewCategoryCommand struct {
	deps  Deps
	table *workflow.Table
}

// NewCategory builds the command.
func NewCategory(deps Deps) (*NewCategoryCommand, error) {
	return &NewCategoryCommand{deps: deps, table: cancelTable()}, nil
}

func (c *NewCategoryCommand) Name() workflow.Kind { return workflow.KindNewCategory }
func (c *NewCategoryCommand) Transitions() *workflow.Table { return c.table }

func (c *NewCategoryCommand) OnEntered(ctx context.Context, _ workflow.Switcher, in workflow.Input) error {
	return c.prompt(ctx, in, categoryPrompt)
}

func (c *NewCategoryCommand) Handle(ctx context.Context, sw workflow.Switcher, in workflow.Input) error {
	return workflow.Dispatch(ctx, c, sw, in)
}

// Fallback treats the input as a category name.
func (c *NewCategoryCommand) Fallback(ctx context.Context, _ workflow.Switcher, in workflow.Input) error {
	name := strings.TrimSpace(in.Text)
	if name == "" {
		return c.prompt(ctx, in, categoryPrompt)
	}
	if utf8.RuneCountInString(name) > maxCategoryName {
		return c.prompt(ctx, in, fmt.Sprintf(categoryTooLong, maxCategoryName))
	}
	cat, created, err := c.deps.Store.CreateCategory(ctx, name)
	if err != nil {
		return err
	}
	if !created {
		return c.prompt(ctx, in, fmt.Sprintf(categoryExists, cat.Name))
	}
	logger.Info(ctx, "workflow", "category.created",
		slog.String("status", "ok"),
		slog.Int64("category_id", cat.ID),
	)
	return c.prompt(ctx, in, fmt.Sprintf(categoryCreated, cat.Name))
}

func (c *NewCategoryCommand) prompt(ctx context.Context, in workflow.Input, text string) error {
	return c.deps.Messenger.Send(ctx, in.ChatID, text, keyboard.Reply([]string{Cancel}))
}
