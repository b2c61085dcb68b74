// Package options implements a checkbox list over a set of bit flags.
package options

import (
	"context"
	"fmt"
	"math/bits"
	"strconv"

	"github.com/m3rciful/accbot/core/telegram/keyboard"
	"github.com/m3rciful/accbot/internal/workflow"
)

// Flags is a union of option values.
type Flags int

// Has reports whether every bit of o is set in f.
func (f Flags) Has(o Flags) bool { return o != 0 && f&o == o }

const (
	// Apply is the token of the confirm button.
	Apply = "OK"
	// TogglePrefix starts every checkbox token; the option value follows.
	TogglePrefix = "check_"
	// CheckedMark is appended to the label of checked items.
	CheckedMark = "*"

	prompt = "Kontrollera alternativen för att aktivera:"
)

// Option is one selectable flag. Options with an empty label are not shown.
type Option struct {
	Label string
	Value Flags
}

// Selection is produced when Apply is pressed.
type Selection struct {
	Flags Flags
}

type item struct {
	Option
	token   string
	checked bool
}

// Selector is the multi-select sub-workflow. Checked state survives Apply.
type Selector struct {
	msg   workflow.Messenger
	items []*item
}

// New builds a selector over opts. Values must be distinct powers of two.
func New(msg workflow.Messenger, opts []Option) (*Selector, error) {
	s := &Selector{msg: msg}
	var seen Flags
	for _, o := range opts {
		if o.Label == "" {
			continue
		}
		if o.Value <= 0 || bits.OnesCount(uint(o.Value)) != 1 {
			return nil, fmt.Errorf("options: value %d of %q is not a single bit", o.Value, o.Label)
		}
		if seen&o.Value != 0 {
			return nil, fmt.Errorf("options: value %d used twice", o.Value)
		}
		seen |= o.Value
		s.items = append(s.items, &item{
			Option: o,
			token:  TogglePrefix + strconv.Itoa(int(o.Value)),
		})
	}
	return s, nil
}

// Register adds every toggle token and the Apply token to t.
func (s *Selector) Register(t *workflow.Table) error {
	for _, it := range s.items {
		if err := t.Add(it.token, workflow.Delegate(s)); err != nil {
			return err
		}
	}
	return t.Add(Apply, workflow.Delegate(s))
}

// Prompt sends the checkbox list as a new message.
func (s *Selector) Prompt(ctx context.Context, in workflow.Input) error {
	return s.msg.Send(ctx, in.ChatID, prompt, s.Markup())
}

// Step toggles an item and edits the list in place, or returns the Selection
// on Apply.
func (s *Selector) Step(ctx context.Context, in workflow.Input) (any, error) {
	if in.Text == Apply {
		return Selection{Flags: s.Selected()}, nil
	}
	for _, it := range s.items {
		if it.token != in.Text {
			continue
		}
		it.checked = !it.checked
		if in.MessageID == 0 {
			return nil, s.msg.Send(ctx, in.ChatID, prompt, s.Markup())
		}
		return nil, s.msg.EditMarkup(ctx, in.ChatID, in.MessageID, s.Markup())
	}
	return nil, fmt.Errorf("%w: option token %q", workflow.ErrUnreachable, in.Text)
}

// Selected returns the union of the checked values.
func (s *Selector) Selected() Flags {
	var f Flags
	for _, it := range s.items {
		if it.checked {
			f |= it.Value
		}
	}
	return f
}

// Markup lays out the items two per row followed by the Apply button.
func (s *Selector) Markup() *keyboard.Markup {
	buttons := make([]keyboard.Button, 0, len(s.items)+1)
	for _, it := range s.items {
		label := it.Label
		if it.checked {
			label += CheckedMark
		}
		buttons = append(buttons, keyboard.Button{Text: label, Data: it.token})
	}
	buttons = append(buttons, keyboard.Button{Text: Apply, Data: Apply})
	return keyboard.Inline(keyboard.Chunk(buttons, 2)...)
}
