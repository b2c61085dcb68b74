// Package keyboard describes reply and inline keyboards independently of the
// transport so workflow code can build and compare them in plain tests.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is an inline button: visible text plus the callback data sent back on press.
type Button struct {
	Text string
	Data string
}

// Markup is the keyboard attached to an outgoing message. At most one of
// Inline, Reply or Remove is expected to be set.
type Markup struct {
	Inline [][]Button
	Reply  [][]string
	Remove bool
}

// Inline builds an inline keyboard from rows of buttons.
func Inline(rows ...[]Button) *Markup {
	return &Markup{Inline: rows}
}

// Reply builds a resizable reply keyboard from rows of labels.
func Reply(rows ...[]string) *Markup {
	return &Markup{Reply: rows}
}

// Remove returns a markup that hides the reply keyboard.
func Remove() *Markup {
	return &Markup{Remove: true}
}

// Chunk splits a flat list into rows with up to n items per row.
// If n <= 1, every item gets its own row.
func Chunk[T any](items []T, n int) [][]T {
	if n < 1 {
		n = 1
	}
	rows := make([][]T, 0, (len(items)+n-1)/n)
	for i := 0; i < len(items); i += n {
		end := i + n
		if end > len(items) {
			end = len(items)
		}
		rows = append(rows, items[i:end])
	}
	return rows
}

// Empty reports whether the markup carries no keyboard at all.
func (m *Markup) Empty() bool {
	return m == nil || (len(m.Inline) == 0 && len(m.Reply) == 0 && !m.Remove)
}

// Tele converts the markup into telebot's representation. Inline buttons are
// emitted without a unique prefix so the callback data arrives verbatim.
func (m *Markup) Tele() *tele.ReplyMarkup {
	if m.Empty() {
		return nil
	}
	if m.Remove {
		return &tele.ReplyMarkup{RemoveKeyboard: true}
	}
	if len(m.Inline) > 0 {
		inline := make([][]tele.InlineButton, len(m.Inline))
		for i, row := range m.Inline {
			r := make([]tele.InlineButton, len(row))
			for j, b := range row {
				r[j] = tele.InlineButton{Text: b.Text, Data: b.Data}
			}
			inline[i] = r
		}
		return &tele.ReplyMarkup{InlineKeyboard: inline}
	}
	reply := make([][]tele.ReplyButton, len(m.Reply))
	for i, row := range m.Reply {
		r := make([]tele.ReplyButton, len(row))
		for j, label := range row {
			r[j] = tele.ReplyButton{Text: label}
		}
		reply[i] = r
	}
	return &tele.ReplyMarkup{ReplyKeyboard: reply, ResizeKeyboard: true}
}
