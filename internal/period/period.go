// Package period asks the user for an inclusive date range with two calendar prompts.
package period

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/accbot/core/logger"
	"github.com/m3rciful/accbot/core/telegram/helpers"
	"github.com/m3rciful/accbot/core/telegram/keyboard"
	"github.com/m3rciful/accbot/internal/calendar"
	"github.com/m3rciful/accbot/internal/workflow"
)

// Phase is the selector state.
type Phase int

const (
	AwaitingStart Phase = iota
	AwaitingEnd
)

func (p Phase) String() string {
	switch p {
	case AwaitingStart:
		return "awaiting_start"
	case AwaitingEnd:
		return "awaiting_end"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Year paging tokens, rendered in a row above the calendar.
const (
	PrevYear = "<--"
	NextYear = "-->"
)

const (
	promptStart = "Välj startdatum för perioden:"
	promptEnd   = "Välj slutdatum för perioden:"
	endTooEarly = "Slutdatumet kan inte vara före startdatumet %s."
)

var monthNames = [...]string{
	"januari", "februari", "mars", "april", "maj", "juni",
	"juli", "augusti", "september", "oktober", "november", "december",
}

// Period is an inclusive range of calendar days, Start <= End, both at 00:00 UTC.
type Period struct {
	Start time.Time
	End   time.Time
}

// Selector is the period sub-workflow. It never produces End before Start and
// returns to AwaitingStart after every completed Period.
type Selector struct {
	msg    workflow.Messenger
	phase  Phase
	cursor time.Time
	start  time.Time
}

// New creates a selector that talks through msg.
func New(msg workflow.Messenger) *Selector {
	return &Selector{msg: msg}
}

// Register adds the month and year paging tokens to t.
func (s *Selector) Register(t *workflow.Table) error {
	for _, tok := range []string{calendar.PrevMonth, calendar.NextMonth, PrevYear, NextYear} {
		if err := t.Add(tok, workflow.Delegate(s)); err != nil {
			return err
		}
	}
	return nil
}

// Phase returns the current phase.
func (s *Selector) Phase() Phase { return s.phase }

// Cursor returns the first day of the displayed month.
func (s *Selector) Cursor() time.Time { return s.cursor }

// PromptStart enters AwaitingStart and shows the calendar for month.
func (s *Selector) PromptStart(ctx context.Context, in workflow.Input, month time.Time) error {
	s.phase = AwaitingStart
	s.cursor = monthOf(month)
	return s.render(ctx, in, "")
}

// Step handles the paging tokens registered by Register. It moves the cursor
// and re-renders the active prompt; it never yields a value.
func (s *Selector) Step(ctx context.Context, in workflow.Input) (any, error) {
	switch in.Text {
	case calendar.PrevMonth:
		s.cursor = s.cursor.AddDate(0, -1, 0)
	case calendar.NextMonth:
		s.cursor = s.cursor.AddDate(0, 1, 0)
	case PrevYear:
		s.cursor = s.cursor.AddDate(-1, 0, 0)
	case NextYear:
		s.cursor = s.cursor.AddDate(1, 0, 0)
	default:
		return nil, fmt.Errorf("%w: period token %q", workflow.ErrUnreachable, in.Text)
	}
	return nil, s.render(ctx, in, "")
}

// HandleInput consumes a date. It returns the Period once the end date is
// accepted and nil otherwise. Unparsable input re-renders the active prompt.
func (s *Selector) HandleInput(ctx context.Context, in workflow.Input) (*Period, error) {
	day, ok := parseDay(in.Text, s.cursor.Year())
	switch s.phase {
	case AwaitingStart:
		if !ok {
			return nil, s.render(ctx, in, "")
		}
		s.start = day
		s.phase = AwaitingEnd
		return nil, s.render(ctx, in, "")
	case AwaitingEnd:
		if !ok {
			return nil, s.render(ctx, in, "")
		}
		if day.Before(s.start) {
			logger.Debug(ctx, "workflow", "period.end_before_start",
				slog.String("start", s.start.Format(calendar.DateLayout)),
				slog.String("end", day.Format(calendar.DateLayout)),
			)
			return nil, s.render(ctx, in, fmt.Sprintf(endTooEarly, s.start.Format(calendar.DateLayout)))
		}
		p := &Period{Start: s.start, End: day}
		s.phase = AwaitingStart
		s.start = time.Time{}
		return p, nil
	}
	return nil, fmt.Errorf("%w: period phase %s", workflow.ErrUnreachable, s.phase)
}

// Markup returns the keyboard of the current prompt.
func (s *Selector) Markup() *keyboard.Markup {
	rows := [][]keyboard.Button{{
		{Text: PrevYear, Data: PrevYear},
		{Text: NextYear, Data: NextYear},
	}}
	return keyboard.Inline(append(rows, calendar.Render(s.cursor)...)...)
}

// Text returns the text of the current prompt.
func (s *Selector) Text() string {
	prompt := promptStart
	if s.phase == AwaitingEnd {
		prompt = promptEnd
	}
	return prompt + "\n" + MonthLabel(s.cursor)
}

// MonthLabel formats t as a Swedish "månad år" label.
func MonthLabel(t time.Time) string {
	return monthNames[t.Month()-1] + " " + fmt.Sprint(t.Year())
}

// render edits the calendar message in place when the input came from one of
// its buttons, otherwise it sends a new message.
func (s *Selector) render(ctx context.Context, in workflow.Input, notice string) error {
	text := s.Text()
	if notice != "" {
		text = notice + "\n" + text
	}
	if in.MessageID != 0 {
		return s.msg.EditText(ctx, in.ChatID, in.MessageID, text, s.Markup())
	}
	return s.msg.Send(ctx, in.ChatID, text, s.Markup())
}

// parseDay accepts a pressed calendar day or a typed date. A typed date
// without a year falls in the displayed year.
func parseDay(text string, year int) (time.Time, bool) {
	if day, ok := calendar.ParseDay(text); ok {
		return day, true
	}
	return helpers.ParseChatDate(text, year)
}

func monthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
