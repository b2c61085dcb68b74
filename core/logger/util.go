package logger

import (
	"log/slog"
	"strings"
	"time"
)

// RoundMS rounds d to whole milliseconds. Negative durations log as zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// ListAttrs summarizes values as <prefix>_total, a <prefix>_preview of at
// most limit entries and <prefix>_truncated when entries were cut.
func ListAttrs(prefix string, values []string, limit int) []any {
	attrs := []any{slog.Int(prefix+"_total", len(values))}
	if len(values) == 0 {
		return attrs
	}
	shown := values
	if limit >= 0 && len(values) > limit {
		shown = values[:limit]
	}
	if len(shown) > 0 {
		attrs = append(attrs, slog.String(prefix+"_preview", strings.Join(shown, ", ")))
	}
	if len(shown) < len(values) {
		attrs = append(attrs, slog.Bool(prefix+"_truncated", true))
	}
	return attrs
}
