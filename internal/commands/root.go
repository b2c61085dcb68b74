package commands

import (
	"context"

	"github.com/m3rciful/accbot/core/telegram/keyboard"
	"github.com/m3rciful/accbot/internal/workflow"
)

const rootText = "Använd menyn för att interagera med boten"

// Root is the idle menu state. Any input it does not know brings the menu
// hint back.
type Root struct {
	msg   workflow.Messenger
	table *workflow.Table
}

// NewRoot builds the root command.
func NewRoot(deps Deps) *Root {
	return &Root{msg: deps.Messenger, table: workflow.NewMenuTable()}
}

func (r *Root) Name() workflow.Kind { return workflow.KindRoot }
func (r *Root) Transitions() *workflow.Table { return r.table }

func (r *Root) OnEntered(ctx context.Context, _ workflow.Switcher, in workflow.Input) error {
	return r.msg.Send(ctx, in.ChatID, rootText, keyboard.Remove())
}

func (r *Root) Handle(ctx context.Context, sw workflow.Switcher, in workflow.Input) error {
	return workflow.Dispatch(ctx, r, sw, in)
}
