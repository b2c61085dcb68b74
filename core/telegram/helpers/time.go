package helpers

import (
	"strings"
	"time"
)

var fullDateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"02.01.2006",
	"2.1.2006",
	"2006/01/02",
	"2006/1/2",
}

// Day and month only; the year comes from the caller.
var shortDateLayouts = []string{
	"2.1",
	"2/1",
}

// ParseChatDate reads a day typed into a chat, such as 2024-11-05, 5.11.2024
// or 2024/11/5. A bare day.month or day/month falls in year. The result is
// midnight UTC.
func ParseChatDate(input string, year int) (time.Time, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range fullDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	for _, layout := range shortDateLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err != nil {
			continue
		}
		day := time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		// 29.2 outside a leap year
		if day.Day() != t.Day() {
			return time.Time{}, false
		}
		return day, true
	}
	return time.Time{}, false
}
