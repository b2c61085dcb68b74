package workflow

import (
	"context"
	"fmt"
)

// Switcher activates a new command within the current turn.
type Switcher interface {
	SwitchTo(ctx context.Context, kind Kind, in Input) error
}

// Command is one menu level conversation.
type Command interface {
	Name() Kind
	Transitions() *Table
	// OnEntered runs once right after the command becomes active, in the same turn.
	OnEntered(ctx context.Context, sw Switcher, in Input) error
	Handle(ctx context.Context, sw Switcher, in Input) error
}

// Fallback is implemented by commands that capture free input not matched by
// their table. Commands without it return to the root menu.
type Fallback interface {
	Fallback(ctx context.Context, sw Switcher, in Input) error
}

// Resumer is implemented by commands that consume results of delegated
// sub-workflows.
type Resumer interface {
	Resume(ctx context.Context, sw Switcher, in Input, result any) error
}

// Gate is implemented by commands whose sub-workflows only listen during some
// of their steps. Tokens of a sub-workflow the gate rejects count as unmatched.
type Gate interface {
	Accepts(sub Subworkflow) bool
}

// Dispatch routes in through cmd's transition table.
func Dispatch(ctx context.Context, cmd Command, sw Switcher, in Input) error {
	a, ok := cmd.Transitions().Lookup(in.Text)
	if !ok {
		return unmatched(ctx, cmd, sw, in)
	}

	switch a.Kind {
	case ActionSwitch:
		return sw.SwitchTo(ctx, a.Target, in)
	case ActionDelegate:
		if g, ok := cmd.(Gate); ok && !g.Accepts(a.Sub) {
			return unmatched(ctx, cmd, sw, in)
		}
		res, err := a.Sub.Step(ctx, in)
		if err != nil || res == nil {
			return err
		}
		if r, ok := cmd.(Resumer); ok {
			return r.Resume(ctx, sw, in, res)
		}
		return nil
	case ActionLocal:
		return a.Step(ctx, in)
	}
	return fmt.Errorf("%w: %s action %s", ErrUnreachable, cmd.Name(), a.Kind)
}

func unmatched(ctx context.Context, cmd Command, sw Switcher, in Input) error {
	if fb, ok := cmd.(Fallback); ok {
		return fb.Fallback(ctx, sw, in)
	}
	return sw.SwitchTo(ctx, KindRoot, in)
}
