package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/accbot/core/telegram/keyboard"
	"github.com/m3rciful/accbot/internal/calendar"
	"github.com/m3rciful/accbot/internal/options"
	"github.com/m3rciful/accbot/internal/period"
	"github.com/m3rciful/accbot/internal/storage"
	"github.com/m3rciful/accbot/internal/workflow"
)

// Fields that can be added to every listed record.
const (
	IncludeUser    options.Flags = 1 << 0
	IncludeComment options.Flags = 1 << 1
	IncludeTime    options.Flags = 1 << 2
)

// IncludeOptions are offered before listing records.
var IncludeOptions = []options.Option{
	{Label: "Användare", Value: IncludeUser},
	{Label: "Kommentar", Value: IncludeComment},
	{Label: "Tid", Value: IncludeTime},
}

const (
	filterPrompt = "Ange minimibeloppet för filtrering:"
	dayHeader    = "Poster för %s:"
)

type listStage int

const (
	listPeriod listStage = iota
	listOptions
	listFilter
)

// recordListing walks period, included fields and minimum amount, then lists
// the matching records grouped per day.
type recordListing struct {
	deps    Deps
	period  *period.Selector
	options *options.Selector
	stage   listStage
	span    period.Period
	include options.Flags
}

func newRecordListing(deps Deps, t *workflow.Table) (*recordListing, error) {
	opts, err := options.New(deps.Messenger, IncludeOptions)
	if err != nil {
		return nil, err
	}
	l := &recordListing{
		deps:    deps,
		period:  period.New(deps.Messenger),
		options: opts,
	}
	if err := l.period.Register(t); err != nil {
		return nil, err
	}
	if err := l.options.Register(t); err != nil {
		return nil, err
	}
	return l, nil
}

// start shows the first calendar.
func (l *recordListing) start(ctx context.Context, in workflow.Input) error {
	l.stage = listPeriod
	return l.period.PromptStart(ctx, plain(in), l.deps.Now())
}

// handle consumes free input. It reports true once the records were listed.
func (l *recordListing) handle(ctx context.Context, in workflow.Input) (bool, error) {
	switch l.stage {
	case listPeriod:
		p, err := l.period.HandleInput(ctx, in)
		if err != nil || p == nil {
			return false, err
		}
		l.span = *p
		l.stage = listOptions
		return false, l.options.Prompt(ctx, plain(in))
	case listOptions:
		return false, l.options.Prompt(ctx, plain(in))
	case listFilter:
		minAmount, ok := parseDecimal(in.Text)
		if !ok || minAmount.IsNegative() {
			return false, l.deps.Messenger.Send(ctx, in.ChatID, filterPrompt, nil)
		}
		return true, l.list(ctx, in, minAmount)
	}
	return false, fmt.Errorf("%w: listing stage %d", workflow.ErrUnreachable, l.stage)
}

// accepts reports whether sub is the selector of the current stage.
func (l *recordListing) accepts(sub workflow.Subworkflow) bool {
	switch sub {
	case l.period:
		return l.stage == listPeriod
	case l.options:
		return l.stage == listOptions
	}
	return false
}

// resume takes the option selection.
func (l *recordListing) resume(ctx context.Context, in workflow.Input, result any) error {
	sel, ok := result.(options.Selection)
	if !ok {
		return fmt.Errorf("%w: listing result %T", workflow.ErrUnreachable, result)
	}
	l.include = sel.Flags
	l.stage = listFilter
	return l.deps.Messenger.Send(ctx, in.ChatID, filterPrompt, keyboard.Remove())
}

func (l *recordListing) list(ctx context.Context, in workflow.Input, minAmount decimal.Decimal) error {
	records, err := l.deps.Store.Purchases(ctx, l.span.Start, l.span.End, minAmount)
	if err != nil {
		return err
	}
	days := formatRecords(records, l.include, l.deps.Currency)
	if len(days) == 0 {
		return l.deps.Messenger.Send(ctx, in.ChatID, fmt.Sprintf(noRecords,
			l.span.Start.Format(calendar.DateLayout), l.span.End.Format(calendar.DateLayout)), nil)
	}
	for _, text := range days {
		if err := l.deps.Messenger.Send(ctx, in.ChatID, text, nil); err != nil {
			return err
		}
	}
	return nil
}

// formatRecords renders one text per day. records must be ordered by time.
func formatRecords(records []storage.Purchase, include options.Flags, currency string) []string {
	var (
		out []string
		b   strings.Builder
		day string
	)
	for _, r := range records {
		if d := r.CreatedAt.Format(calendar.DateLayout); d != day {
			if b.Len() > 0 {
				out = append(out, b.String())
				b.Reset()
			}
			day = d
			fmt.Fprintf(&b, dayHeader, day)
		}
		b.WriteByte('\n')
		b.WriteString(formatRecord(r, include, currency))
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

func formatRecord(r storage.Purchase, include options.Flags, currency string) string {
	parts := []string{fmt.Sprintf("-- id: %d", r.ID)}
	if include.Has(IncludeUser) {
		parts = append(parts, r.User)
	}
	if include.Has(IncludeTime) {
		parts = append(parts, r.CreatedAt.Format("15:04"))
	}
	parts = append(parts, fmt.Sprintf("%s%s - %s", r.Amount.StringFixed(2), currency, r.CategoryName))
	if include.Has(IncludeComment) && r.Comment != nil && strings.TrimSpace(*r.Comment) != "" {
		parts = append(parts, *r.Comment)
	}
	return strings.Join(parts, ", ")
}

// ListRecordsCommand lists records and starts over with a new period.
type ListRecordsCommand struct {
	table   *workflow.Table
	listing *recordListing
}

// NewListRecords builds the command.
func NewListRecords(deps Deps) (*ListRecordsCommand, error) {
	c := &ListRecordsCommand{table: workflow.NewMenuTable()}
	l, err := newRecordListing(deps, c.table)
	if err != nil {
		return nil, err
	}
	c.listing = l
	return c, nil
}

func (c *ListRecordsCommand) Name() workflow.Kind { return workflow.KindListRecords }
func (c *ListRecordsCommand) Transitions() *workflow.Table { return c.table }

func (c *ListRecordsCommand) OnEntered(ctx context.Context, _ workflow.Switcher, in workflow.Input) error {
	return c.listing.start(ctx, in)
}

func (c *ListRecordsCommand) Handle(ctx context.Context, sw workflow.Switcher, in workflow.Input) error {
	return workflow.Dispatch(ctx, c, sw, in)
}

func (c *ListRecordsCommand) Fallback(ctx context.Context, _ workflow.Switcher, in workflow.Input) error {
	done, err := c.listing.handle(ctx, in)
	if err != nil || !done {
		return err
	}
	return c.listing.start(ctx, in)
}

// Accepts keeps paging and option tokens inside their own stage. Elsewhere
// they are plain text for the current step.
func (c *ListRecordsCommand) Accepts(sub workflow.Subworkflow) bool {
	return c.listing.accepts(sub)
}

func (c *ListRecordsCommand) Resume(ctx context.Context, _ workflow.Switcher, in workflow.Input, result any) error {
	return c.listing.resume(ctx, in, result)
}
