package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/accbot/core/telegram/keyboard"
	"github.com/m3rciful/accbot/internal/storage"
	"github.com/m3rciful/accbot/internal/workflow"
)

// SkipComment saves the purchase without asking for a comment.
const SkipComment = "Spara utan kommentar"

const (
	chooseCategory  = "Välj kategori:"
	noCategories    = "Det finns inga kategorier ännu. Skapa en med /ny_kategori."
	invalidCategory = "Ogiltig kategori, använd knapparna för att välja en kategori"
	categoryChosen  = "Kategori \"%s\" vald. Ange beloppet:"
	invalidAmount   = "Ogiltigt belopp, ange ett positivt tal:"
	amountAccepted  = "Beloppet \"%s\" har sparats, eventuella kommentarer?"
	commentTooLong  = "Kommentaren får vara högst %d tecken."
	recordSaved     = "Posten har sparats"
)

// maxAmount is the first value that no longer fits NUMERIC(12,2).
var maxAmount = decimal.New(1, 10)

type formStage int

const (
	stageCategory formStage = iota
	stageAmount
	stageComment
)

// purchaseForm asks for category, amount and comment of a draft purchase.
// It is shared by the commands that create and correct purchases.
type purchaseForm struct {
	deps  Deps
	stage formStage
	draft storage.Purchase
}

// promptCategory shows the category keyboard and waits for a pick.
func (f *purchaseForm) promptCategory(ctx context.Context, in workflow.Input, text string) error {
	f.stage = stageCategory
	cats, err := f.deps.Store.Categories(ctx)
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		return f.deps.Messenger.Send(ctx, in.ChatID, noCategories, keyboard.Reply([]string{Cancel}))
	}
	rows := keyboard.Chunk(categoryLabels(cats), 2)
	rows = append(rows, []string{Cancel})
	return f.deps.Messenger.Send(ctx, in.ChatID, text, keyboard.Reply(rows...))
}

// handle consumes one answer. It reports true once the draft is complete.
func (f *purchaseForm) handle(ctx context.Context, in workflow.Input) (bool, error) {
	send := func(text string, markup *keyboard.Markup) error {
		return f.deps.Messenger.Send(ctx, in.ChatID, text, markup)
	}
	switch f.stage {
	case stageCategory:
		id, ok := parseCategoryID(in.Text)
		if !ok {
			return false, send(invalidCategory, nil)
		}
		cat, err := f.deps.Store.Category(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return false, send(invalidCategory, nil)
		}
		if err != nil {
			return false, err
		}
		f.draft.CategoryID = cat.ID
		f.draft.CategoryName = cat.Name
		f.stage = stageAmount
		return false, send(fmt.Sprintf(categoryChosen, cat.Name), keyboard.Reply([]string{Cancel}))
	case stageAmount:
		amount, ok := parseAmount(in.Text)
		if !ok {
			return false, send(invalidAmount, nil)
		}
		f.draft.Amount = amount
		f.stage = stageComment
		return false, send(fmt.Sprintf(amountAccepted, amount.StringFixed(2)),
			keyboard.Reply([]string{SkipComment, Cancel}))
	case stageComment:
		comment := strings.TrimSpace(in.Text)
		if utf8.RuneCountInString(comment) > storage.MaxCommentLen {
			return false, send(fmt.Sprintf(commentTooLong, storage.MaxCommentLen), nil)
		}
		f.draft.Comment = nil
		if comment != "" {
			f.draft.Comment = &comment
		}
		return true, nil
	}
	return false, fmt.Errorf("%w: purchase form stage %d", workflow.ErrUnreachable, f.stage)
}

// skipComment completes the draft without comment. It does nothing outside
// the comment stage.
func (f *purchaseForm) skipComment() bool {
	if f.stage != stageComment {
		return false
	}
	f.draft.Comment = nil
	return true
}

func categoryLabels(cats []storage.Category) []string {
	labels := make([]string, len(cats))
	for i, c := range cats {
		labels[i] = fmt.Sprintf("%d. %s", c.ID, c.Name)
	}
	return labels
}

// parseCategoryID reads the id in front of the first dot of a "<id>. <name>" label.
func parseCategoryID(text string) (int64, bool) {
	i := strings.IndexByte(text, '.')
	if i <= 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(text[:i]), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseAmount accepts a positive decimal with either '.' or ',' as separator,
// rounded to cents.
func parseAmount(text string) (decimal.Decimal, bool) {
	d, ok := parseDecimal(text)
	if !ok {
		return decimal.Decimal{}, false
	}
	d = d.Round(2)
	if !d.IsPositive() || !d.LessThan(maxAmount) {
		return decimal.Decimal{}, false
	}
	return d, true
}

func parseDecimal(text string) (decimal.Decimal, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
