package calendar

import (
	"testing"
	"time"

	"github.com/m3rciful/accbot/core/telegram/keyboard"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weekRows(grid [][]keyboard.Button) [][]keyboard.Button {
	return grid[1 : len(grid)-1]
}

func TestRenderShape(t *testing.T) {
	cases := []struct {
		name  string
		month time.Time
		weeks int
	}{
		{"starts monday ends sunday", day(2021, time.February, 14), 4},
		{"ends saturday", day(2024, time.November, 20), 5},
		{"starts sunday", day(2026, time.March, 3), 6},
		{"leap february", day(2024, time.February, 29), 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			grid := Render(tc.month)
			if len(grid[0]) != 7 {
				t.Fatalf("header has %d cells", len(grid[0]))
			}
			for i, b := range grid[0] {
				if b.Text != Weekdays[i] || b.Data != Inert {
					t.Fatalf("header cell %d = %+v", i, b)
				}
			}
			if got := len(weekRows(grid)); got != tc.weeks {
				t.Fatalf("week rows = %d, want %d", got, tc.weeks)
			}
			for i, row := range weekRows(grid) {
				if len(row) != 7 {
					t.Fatalf("row %d has %d cells", i, len(row))
				}
			}
			nav := grid[len(grid)-1]
			if len(nav) != 2 || nav[0].Data != PrevMonth || nav[1].Data != NextMonth {
				t.Fatalf("nav row = %+v", nav)
			}
		})
	}
}

func TestRenderWednesdayStart(t *testing.T) {
	first := weekRows(Render(day(2025, time.January, 15)))[0]
	for i := 0; i < 2; i++ {
		if first[i].Text != Placeholder || first[i].Data != Inert {
			t.Fatalf("cell %d should be a placeholder, got %+v", i, first[i])
		}
	}
	if first[2].Text != "1" || first[2].Data != "2025-01-01" {
		t.Fatalf("cell 2 = %+v", first[2])
	}
}

func TestRenderMondayStartHasNoLeadingPlaceholder(t *testing.T) {
	first := weekRows(Render(day(2021, time.February, 1)))[0]
	if first[0].Data != "2021-02-01" {
		t.Fatalf("first cell = %+v", first[0])
	}
}

func TestRenderTrailingPlaceholders(t *testing.T) {
	// February 2026 ends on a Saturday.
	weeks := weekRows(Render(day(2026, time.February, 1)))
	last := weeks[len(weeks)-1]
	if last[5].Data != "2026-02-28" {
		t.Fatalf("saturday cell = %+v", last[5])
	}
	if last[6].Data != Inert || last[6].Text != Placeholder {
		t.Fatalf("sunday cell should be a placeholder, got %+v", last[6])
	}

	// March 2024 ends on a Sunday: the last row is full.
	weeks = weekRows(Render(day(2024, time.March, 1)))
	last = weeks[len(weeks)-1]
	for i, b := range last {
		if b.Data == Inert {
			t.Fatalf("unexpected placeholder at %d", i)
		}
	}
	if last[6].Data != "2024-03-31" {
		t.Fatalf("last cell = %+v", last[6])
	}
}

func TestDayTokensRoundTrip(t *testing.T) {
	for m := time.January; m <= time.December; m++ {
		seen := 0
		for _, row := range weekRows(Render(day(2024, m, 1))) {
			for _, b := range row {
				if b.Data == Inert {
					continue
				}
				d, ok := ParseDay(b.Data)
				if !ok {
					t.Fatalf("token %q does not parse", b.Data)
				}
				if d.Format(DateLayout) != b.Data {
					t.Fatalf("round trip %q -> %q", b.Data, d.Format(DateLayout))
				}
				if d.Month() != m {
					t.Fatalf("token %q outside month %s", b.Data, m)
				}
				seen++
			}
		}
		want := day(2024, m, 1).AddDate(0, 1, -1).Day()
		if seen != want {
			t.Fatalf("%s: %d day cells, want %d", m, seen, want)
		}
	}
}

func TestInertNeverEqualsRealToken(t *testing.T) {
	for _, tok := range []string{PrevMonth, NextMonth, Placeholder} {
		if tok == Inert {
			t.Fatalf("%q collides with the inert token", tok)
		}
	}
	if _, ok := ParseDay(Inert); ok {
		t.Fatalf("inert token must not parse as a day")
	}
}
