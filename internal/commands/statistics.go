package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/accbot/internal/calendar"
	"github.com/m3rciful/accbot/internal/period"
	"github.com/m3rciful/accbot/internal/storage"
	"github.com/m3rciful/accbot/internal/workflow"
)

const (
	noRecords = "Inga poster för perioden %s - %s."
	// barStep is the share, in percent, drawn by one bar block.
	barStep  = 4
	barBlock = "■"
)

// StatisticsCommand sums spending per category over a chosen period and
// then asks for the next period.
type StatisticsCommand struct {
	deps   Deps
	table  *workflow.Table
	period *period.Selector
}

// NewStatistics builds the command.
func NewStatistics(deps Deps) (*StatisticsCommand, error) {
	c := &StatisticsCommand{
		deps:   deps,
		table:  workflow.NewMenuTable(),
		period: period.New(deps.Messenger),
	}
	if err := c.period.Register(c.table); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *StatisticsCommand) Name() workflow.Kind { return workflow.KindStatistics }
func (c *StatisticsCommand) Transitions() *workflow.Table { return c.table }

func (c *StatisticsCommand) OnEntered(ctx context.Context, _ workflow.Switcher, in workflow.Input) error {
	return c.period.PromptStart(ctx, plain(in), c.deps.Now())
}

func (c *StatisticsCommand) Handle(ctx context.Context, sw workflow.Switcher, in workflow.Input) error {
	return workflow.Dispatch(ctx, c, sw, in)
}

// Fallback feeds the period selector and reports once a period is complete.
func (c *StatisticsCommand) Fallback(ctx context.Context, _ workflow.Switcher, in workflow.Input) error {
	p, err := c.period.HandleInput(ctx, in)
	if err != nil || p == nil {
		return err
	}
	totals, err := c.deps.Store.SumByCategory(ctx, p.Start, p.End)
	if err != nil {
		return err
	}
	if err := c.deps.Messenger.Send(ctx, in.ChatID, formatStatistics(*p, totals, c.deps.Currency), nil); err != nil {
		return err
	}
	return c.period.PromptStart(ctx, plain(in), c.period.Cursor())
}

// formatStatistics renders totals, which must be ordered largest first.
func formatStatistics(p period.Period, totals []storage.CategoryTotal, currency string) string {
	from, to := p.Start.Format(calendar.DateLayout), p.End.Format(calendar.DateLayout)
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t.Total)
	}
	if len(totals) == 0 || !sum.IsPositive() {
		return fmt.Sprintf(noRecords, from, to)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Statistik från %s till %s - totalt %s%s\n\n", from, to, sum.StringFixed(2), currency)
	for _, t := range totals {
		share := t.Total.Mul(decimal.NewFromInt(100)).Div(sum)
		fmt.Fprintf(&b, "%s: %s%s\n(%s%%)\n", t.Name, t.Total.StringFixed(2), currency, share.StringFixed(2))
		b.WriteString(strings.Repeat(barBlock, int(share.Div(decimal.NewFromInt(barStep)).IntPart())))
		b.WriteByte('\n')
	}
	return b.String()
}
