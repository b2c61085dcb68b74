package workflow

import (
	"context"
	"fmt"
)

// ActionKind tags the variant held by an Action.
type ActionKind int

const (
	ActionSwitch ActionKind = iota + 1
	ActionDelegate
	ActionLocal
)

func (k ActionKind) String() string {
	switch k {
	case ActionSwitch:
		return "switch"
	case ActionDelegate:
		return "delegate"
	case ActionLocal:
		return "local"
	}
	return fmt.Sprintf("action(%d)", int(k))
}

// StepFunc handles one input inside the owning command.
type StepFunc func(ctx context.Context, in Input) error

// Subworkflow is a reusable conversation piece embedded in a command. Step
// returns a non-nil result once the sub-workflow has produced its value.
type Subworkflow interface {
	Step(ctx context.Context, in Input) (any, error)
}

// Action is what a transition table entry does. Exactly one of Target, Sub or
// Step is meaningful, selected by Kind.
type Action struct {
	Kind   ActionKind
	Target Kind
	Sub    Subworkflow
	Step   StepFunc
}

// Switch replaces the active command with a fresh one of kind k.
func Switch(k Kind) Action { return Action{Kind: ActionSwitch, Target: k} }

// Delegate hands the input to sub.
func Delegate(sub Subworkflow) Action { return Action{Kind: ActionDelegate, Sub: sub} }

// Local runs fn inside the current command.
func Local(fn StepFunc) Action { return Action{Kind: ActionLocal, Step: fn} }

// Table maps exact input tokens to actions.
type Table struct {
	actions map[string]Action
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{actions: make(map[string]Action)}
}

// NewMenuTable returns a table in which every menu command switches to itself.
func NewMenuTable() *Table {
	t := NewTable()
	for _, k := range MenuKinds {
		t.actions[string(k)] = Switch(k)
	}
	return t
}

// Add registers token. Registering the same token twice is an error.
func (t *Table) Add(token string, a Action) error {
	if _, exists := t.actions[token]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateToken, token)
	}
	t.actions[token] = a
	return nil
}

// Lookup returns the action registered for token. Matching is exact: no
// trimming and no case folding.
func (t *Table) Lookup(token string) (Action, bool) {
	a, ok := t.actions[token]
	return a, ok
}

// Len reports the number of registered tokens.
func (t *Table) Len() int { return len(t.actions) }
