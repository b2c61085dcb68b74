// Package calendar renders a month as an inline keyboard grid.
//
// Weeks start on Monday. Every real day carries its date as a token in the
// 2006-01-02 layout; header and filler cells carry Inert, which no workflow
// ever registers.
package calendar

import (
	"strconv"
	"time"

	"github.com/m3rciful/accbot/core/telegram/keyboard"
)

const (
	// Inert is the token of cells that must never trigger a transition.
	Inert = "-=-"
	// Placeholder is the visible text of cells outside the month.
	Placeholder = "--"
	// PrevMonth and NextMonth are the navigation tokens of the last row.
	PrevMonth = "<-"
	NextMonth = "->"
	// DateLayout is the layout of day tokens.
	DateLayout = "2006-01-02"
)

// Weekdays are the header labels, Monday first.
var Weekdays = [7]string{"Mån", "Tis", "Ons", "Tor", "Fre", "Lör", "Sön"}

// Column maps a weekday onto its column, Monday = 0 and Sunday = 6.
func Column(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// Render returns the header row, one row per week of the month containing
// cursor, and the two-cell navigation row.
func Render(cursor time.Time) [][]keyboard.Button {
	first := time.Date(cursor.Year(), cursor.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	header := make([]keyboard.Button, 7)
	for i, label := range Weekdays {
		header[i] = keyboard.Button{Text: label, Data: Inert}
	}
	rows := [][]keyboard.Button{header}

	week := make([]keyboard.Button, 7)
	col := Column(first.Weekday())
	for i := 0; i < col; i++ {
		week[i] = filler()
	}
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		col = Column(day.Weekday())
		week[col] = keyboard.Button{
			Text: strconv.Itoa(day.Day()),
			Data: day.Format(DateLayout),
		}
		if col == 6 {
			rows = append(rows, week)
			week = make([]keyboard.Button, 7)
		}
	}
	if col != 6 {
		for i := col + 1; i < 7; i++ {
			week[i] = filler()
		}
		rows = append(rows, week)
	}

	return append(rows, []keyboard.Button{
		{Text: PrevMonth, Data: PrevMonth},
		{Text: NextMonth, Data: NextMonth},
	})
}

// ParseDay parses a day token produced by Render.
func ParseDay(token string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, token)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func filler() keyboard.Button {
	return keyboard.Button{Text: Placeholder, Data: Inert}
}
