package commands

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/accbot/core/telegram/keyboard"
	"github.com/m3rciful/accbot/internal/events"
	"github.com/m3rciful/accbot/internal/options"
	"github.com/m3rciful/accbot/internal/period"
	"github.com/m3rciful/accbot/internal/storage"
	"github.com/m3rciful/accbot/internal/workflow"
)

type sent struct {
	action    string
	messageID int
	text      string
	markup    *keyboard.Markup
}

type fakeMessenger struct {
	out []sent
}

func (f *fakeMessenger) Send(_ context.Context, _ int64, text string, markup *keyboard.Markup) error {
	f.out = append(f.out, sent{action: "send", text: text, markup: markup})
	return nil
}

func (f *fakeMessenger) EditText(_ context.Context, _ int64, messageID int, text string, markup *keyboard.Markup) error {
	f.out = append(f.out, sent{action: "edit_text", messageID: messageID, text: text, markup: markup})
	return nil
}

func (f *fakeMessenger) EditMarkup(_ context.Context, _ int64, messageID int, markup *keyboard.Markup) error {
	f.out = append(f.out, sent{action: "edit_markup", messageID: messageID, markup: markup})
	return nil
}

func (f *fakeMessenger) last(t *testing.T) sent {
	t.Helper()
	if len(f.out) == 0 {
		t.Fatal("nothing sent")
	}
	return f.out[len(f.out)-1]
}

type fakeStore struct {
	cats      []storage.Category
	purchases []storage.Purchase
	nextID    int64
}

func (s *fakeStore) Categories(context.Context) ([]storage.Category, error) {
	return append([]storage.Category(nil), s.cats...), nil
}

func (s *fakeStore) Category(_ context.Context, id int64) (storage.Category, error) {
	for _, c := range s.cats {
		if c.ID == id {
			return c, nil
		}
	}
	return storage.Category{}, storage.ErrNotFound
}

func (s *fakeStore) CreateCategory(_ context.Context, name string) (storage.Category, bool, error) {
	for _, c := range s.cats {
		if c.Name == name {
			return c, false, nil
		}
	}
	c := storage.Category{ID: int64(len(s.cats) + 1), Name: name}
	s.cats = append(s.cats, c)
	return c, true, nil
}

func (s *fakeStore) AddPurchase(ctx context.Context, p storage.Purchase) (storage.Purchase, error) {
	cat, err := s.Category(ctx, p.CategoryID)
	if err != nil {
		return storage.Purchase{}, err
	}
	s.nextID++
	p.ID = s.nextID
	p.CategoryName = cat.Name
	p.CreatedAt = time.Date(2024, 11, 3, 12, 0, 0, 0, time.UTC)
	s.purchases = append(s.purchases, p)
	return p, nil
}

func (s *fakeStore) Purchase(_ context.Context, id int64) (storage.Purchase, error) {
	for _, p := range s.purchases {
		if p.ID == id {
			return p, nil
		}
	}
	return storage.Purchase{}, storage.ErrNotFound
}

func (s *fakeStore) UpdatePurchase(ctx context.Context, p storage.Purchase) error {
	for i := range s.purchases {
		if s.purchases[i].ID != p.ID {
			continue
		}
		cat, err := s.Category(ctx, p.CategoryID)
		if err != nil {
			return err
		}
		s.purchases[i].CategoryID = cat.ID
		s.purchases[i].CategoryName = cat.Name
		s.purchases[i].Amount = p.Amount
		s.purchases[i].Comment = p.Comment
		return nil
	}
	return storage.ErrNotFound
}

func (s *fakeStore) Purchases(_ context.Context, from, to time.Time, minAmount decimal.Decimal) ([]storage.Purchase, error) {
	var out []storage.Purchase
	for _, p := range s.purchases {
		if inPeriod(p.CreatedAt, from, to) && p.Amount.GreaterThanOrEqual(minAmount) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) SumByCategory(_ context.Context, from, to time.Time) ([]storage.CategoryTotal, error) {
	byID := map[int64]*storage.CategoryTotal{}
	var out []*storage.CategoryTotal
	for _, p := range s.purchases {
		if !inPeriod(p.CreatedAt, from, to) {
			continue
		}
		t, ok := byID[p.CategoryID]
		if !ok {
			t = &storage.CategoryTotal{CategoryID: p.CategoryID, Name: p.CategoryName}
			byID[p.CategoryID] = t
			out = append(out, t)
		}
		t.Total = t.Total.Add(p.Amount)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total.GreaterThan(out[j].Total) })
	totals := make([]storage.CategoryTotal, len(out))
	for i, t := range out {
		totals[i] = *t
	}
	return totals, nil
}

func inPeriod(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to.AddDate(0, 0, 1))
}

type fakePublisher struct {
	events []events.Event
}

func (p *fakePublisher) Publish(_ context.Context, ev events.Event) error {
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type harness struct {
	msg   *fakeMessenger
	store *fakeStore
	pub   *fakePublisher
	m     *workflow.Manager
}

func newHarness() *harness {
	h := &harness{msg: &fakeMessenger{}, store: &fakeStore{}, pub: &fakePublisher{}}
	factory := NewFactory(Deps{
		Messenger: h.msg,
		Store:     h.store,
		Events:    h.pub,
		Currency:  "€",
		Now:       func() time.Time { return time.Date(2024, 11, 15, 9, 0, 0, 0, time.UTC) },
	})
	h.m = workflow.NewManager("anna", factory)
	return h
}

func (h *harness) say(t *testing.T, text string) {
	t.Helper()
	h.press(t, text, 0)
}

func (h *harness) press(t *testing.T, text string, messageID int) {
	t.Helper()
	in := workflow.Input{UserName: "anna", ChatID: 1, Text: text, MessageID: messageID}
	if err := h.m.HandleInput(context.Background(), in); err != nil {
		t.Fatalf("input %q: %v", text, err)
	}
}

func TestNewCategoryCreatesOnceThenReportsExisting(t *testing.T) {
	h := newHarness()

	h.say(t, "/ny_kategori")
	if got := h.msg.last(t).text; got != categoryPrompt {
		t.Fatalf("prompt = %q", got)
	}
	h.say(t, "Groceries")
	if got := h.msg.last(t).text; got != `Kategori "Groceries" har skapats.` {
		t.Fatalf("after create = %q", got)
	}
	h.say(t, "Groceries")
	if got := h.msg.last(t).text; got != `Kategori "Groceries" finns redan.` {
		t.Fatalf("after repeat = %q", got)
	}
	if len(h.store.cats) != 1 {
		t.Fatalf("categories = %v", h.store.cats)
	}
	if h.m.Current() != workflow.KindNewCategory {
		t.Fatalf("command = %s", h.m.Current())
	}
}

func TestCancelReturnsToRoot(t *testing.T) {
	h := newHarness()
	h.say(t, "/ny_kategori")
	h.say(t, Cancel)
	last := h.msg.last(t)
	if last.text != rootText || last.markup == nil || !last.markup.Remove {
		t.Fatalf("root reply = %+v", last)
	}
	if h.m.Current() != workflow.KindRoot {
		t.Fatalf("command = %s", h.m.Current())
	}
}

func TestRootAnswersUnknownInputWithMenuHint(t *testing.T) {
	h := newHarness()
	h.say(t, "hej")
	if got := h.msg.last(t).text; got != rootText {
		t.Fatalf("reply = %q", got)
	}
}

func TestNewPurchaseFlow(t *testing.T) {
	h := newHarness()
	h.store.cats = []storage.Category{{ID: 1, Name: "Mat"}, {ID: 2, Name: "Hem"}, {ID: 3, Name: "Resor"}}

	h.say(t, "/ny_post")
	want := [][]string{{"1. Mat", "2. Hem"}, {"3. Resor"}, {Cancel}}
	if got := h.msg.last(t).markup; got == nil || !equalRows(got.Reply, want) {
		t.Fatalf("category keyboard = %+v", got)
	}

	h.say(t, "Mat")
	if got := h.msg.last(t).text; got != invalidCategory {
		t.Fatalf("invalid label reply = %q", got)
	}
	h.say(t, "9. Okänd")
	if got := h.msg.last(t).text; got != invalidCategory {
		t.Fatalf("unknown id reply = %q", got)
	}

	h.say(t, "1. Mat")
	if got := h.msg.last(t).text; got != `Kategori "Mat" vald. Ange beloppet:` {
		t.Fatalf("category reply = %q", got)
	}
	h.say(t, "gratis")
	if got := h.msg.last(t).text; got != invalidAmount {
		t.Fatalf("bad amount reply = %q", got)
	}
	h.say(t, "12,5")
	if got := h.msg.last(t).text; got != `Beloppet "12.50" har sparats, eventuella kommentarer?` {
		t.Fatalf("amount reply = %q", got)
	}
	h.say(t, SkipComment)

	if len(h.store.purchases) != 1 {
		t.Fatalf("purchases = %v", h.store.purchases)
	}
	p := h.store.purchases[0]
	if p.CategoryID != 1 || p.User != "anna" || p.Comment != nil || !p.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("saved purchase = %+v", p)
	}
	if got := h.msg.last(t).text; got != recordSaved+"\n\n"+chooseCategory {
		t.Fatalf("saved reply = %q", got)
	}
	if len(h.pub.events) != 1 || h.pub.events[0].Kind != events.KindSaved || h.pub.events[0].Category != "Mat" {
		t.Fatalf("events = %+v", h.pub.events)
	}

	// The next entry starts right away and keeps the comment.
	h.say(t, "2. Hem")
	h.say(t, "40")
	h.say(t, "  hyra  ")
	if len(h.store.purchases) != 2 || h.store.purchases[1].Comment == nil || *h.store.purchases[1].Comment != "hyra" {
		t.Fatalf("second purchase = %+v", h.store.purchases)
	}
}

func TestSkipCommentOutsideCommentStageIsCategoryInput(t *testing.T) {
	h := newHarness()
	h.store.cats = []storage.Category{{ID: 1, Name: "Mat"}}
	h.say(t, "/ny_post")
	h.say(t, SkipComment)
	if got := h.msg.last(t).text; got != invalidCategory {
		t.Fatalf("reply = %q", got)
	}
	if len(h.store.purchases) != 0 {
		t.Fatalf("unexpected save: %v", h.store.purchases)
	}
}

func TestCommentLimit(t *testing.T) {
	h := newHarness()
	h.store.cats = []storage.Category{{ID: 1, Name: "Mat"}}
	h.say(t, "/ny_post")
	h.say(t, "1. Mat")
	h.say(t, "5")
	h.say(t, strings.Repeat("å", storage.MaxCommentLen+1))
	if len(h.store.purchases) != 0 {
		t.Fatal("too long comment was saved")
	}
	h.say(t, strings.Repeat("å", storage.MaxCommentLen))
	if len(h.store.purchases) != 1 {
		t.Fatal("comment at the limit was rejected")
	}
}

func TestStatisticsScenario(t *testing.T) {
	h := newHarness()
	h.store.cats = []storage.Category{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	day := time.Date(2024, 11, 10, 12, 0, 0, 0, time.UTC)
	h.store.purchases = []storage.Purchase{
		{ID: 1, CategoryID: 1, CategoryName: "A", Amount: decimal.NewFromInt(30), CreatedAt: day},
		{ID: 2, CategoryID: 2, CategoryName: "B", Amount: decimal.NewFromInt(70), CreatedAt: day},
	}

	h.say(t, "/statistik")
	h.press(t, "2024-11-01", 10)
	if got := h.msg.last(t); got.action != "edit_text" || got.messageID != 10 {
		t.Fatalf("end prompt = %+v", got)
	}
	h.press(t, "2024-11-30", 10)

	want := "Statistik från 2024-11-01 till 2024-11-30 - totalt 100.00€\n\n" +
		"B: 70.00€\n(70.00%)\n" + strings.Repeat("■", 17) + "\n" +
		"A: 30.00€\n(30.00%)\n" + strings.Repeat("■", 7) + "\n"
	stats := h.msg.out[len(h.msg.out)-2]
	if stats.text != want {
		t.Fatalf("statistics:\n%s\nwant:\n%s", stats.text, want)
	}
	if last := h.msg.last(t); last.action != "send" || !strings.HasPrefix(last.text, "Välj startdatum") {
		t.Fatalf("re-prompt = %+v", last)
	}
}

func TestFormatStatisticsEmpty(t *testing.T) {
	p := period.Period{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	if got := formatStatistics(p, nil, "€"); got != "Inga poster för perioden 2024-01-01 - 2024-01-31." {
		t.Fatalf("got %q", got)
	}
}

func TestFormatRecords(t *testing.T) {
	lunch := "lunch"
	records := []storage.Purchase{
		{ID: 1, User: "anna", Amount: decimal.RequireFromString("12.5"), CategoryName: "Mat", Comment: &lunch,
			CreatedAt: time.Date(2024, 11, 3, 10, 15, 0, 0, time.UTC)},
		{ID: 2, User: "bob", Amount: decimal.NewFromInt(3), CategoryName: "Hem",
			CreatedAt: time.Date(2024, 11, 3, 18, 0, 0, 0, time.UTC)},
		{ID: 3, User: "anna", Amount: decimal.RequireFromString("7.25"), CategoryName: "Mat",
			CreatedAt: time.Date(2024, 11, 4, 8, 5, 0, 0, time.UTC)},
	}

	tests := []struct {
		name    string
		include options.Flags
		want    []string
	}{
		{
			name:    "all fields",
			include: IncludeUser | IncludeComment | IncludeTime,
			want: []string{
				"Poster för 2024-11-03:\n-- id: 1, anna, 10:15, 12.50€ - Mat, lunch\n-- id: 2, bob, 18:00, 3.00€ - Hem",
				"Poster för 2024-11-04:\n-- id: 3, anna, 08:05, 7.25€ - Mat",
			},
		},
		{
			name:    "defaults",
			include: 0,
			want: []string{
				"Poster för 2024-11-03:\n-- id: 1, 12.50€ - Mat\n-- id: 2, 3.00€ - Hem",
				"Poster för 2024-11-04:\n-- id: 3, 7.25€ - Mat",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatRecords(records, tt.include, "€")
			if len(got) != len(tt.want) {
				t.Fatalf("got %d days: %q", len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("day %d:\n%s\nwant:\n%s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestListRecordsScenario(t *testing.T) {
	h := newHarness()
	h.store.cats = []storage.Category{{ID: 1, Name: "Mat"}}
	h.store.purchases = []storage.Purchase{
		{ID: 1, CategoryID: 1, CategoryName: "Mat", User: "anna", Amount: decimal.NewFromInt(5),
			CreatedAt: time.Date(2024, 11, 3, 9, 30, 0, 0, time.UTC)},
		{ID: 2, CategoryID: 1, CategoryName: "Mat", User: "bob", Amount: decimal.NewFromInt(50),
			CreatedAt: time.Date(2024, 11, 3, 19, 0, 0, 0, time.UTC)},
	}

	h.say(t, "/visa_poster")
	h.press(t, "2024-11-01", 10)
	h.press(t, "2024-11-30", 10)
	if got := h.msg.last(t).text; !strings.HasPrefix(got, "Kontrollera") {
		t.Fatalf("options prompt = %q", got)
	}
	h.press(t, "check_1", 11)
	if got := h.msg.last(t); got.action != "edit_markup" || got.messageID != 11 {
		t.Fatalf("toggle = %+v", got)
	}
	h.press(t, "OK", 11)
	if got := h.msg.last(t).text; got != filterPrompt {
		t.Fatalf("filter prompt = %q", got)
	}
	h.say(t, "minst tio")
	if got := h.msg.last(t).text; got != filterPrompt {
		t.Fatalf("bad filter reply = %q", got)
	}
	h.say(t, "10")

	listing := h.msg.out[len(h.msg.out)-2]
	if listing.text != "Poster för 2024-11-03:\n-- id: 2, bob, 50.00€ - Mat" {
		t.Fatalf("listing = %q", listing.text)
	}
	if got := h.msg.last(t).text; !strings.HasPrefix(got, "Välj startdatum") {
		t.Fatalf("after listing = %q", got)
	}
}

func TestCorrectRecordScenario(t *testing.T) {
	h := newHarness()
	h.store.cats = []storage.Category{{ID: 1, Name: "Mat"}, {ID: 2, Name: "Hem"}}
	h.store.purchases = []storage.Purchase{
		{ID: 5, CategoryID: 1, CategoryName: "Mat", User: "anna", Amount: decimal.RequireFromString("12.50"),
			CreatedAt: time.Date(2024, 11, 3, 10, 0, 0, 0, time.UTC)},
	}

	h.say(t, "/korrigera_post")
	h.press(t, "2024-11-01", 10)
	h.press(t, "2024-11-30", 10)
	h.press(t, "OK", 11)
	h.say(t, "0")
	if got := h.msg.out[len(h.msg.out)-2].text; got != "Poster för 2024-11-03:\n-- id: 5, 12.50€ - Mat" {
		t.Fatalf("listing = %q", got)
	}
	if got := h.msg.last(t).text; got != idPrompt {
		t.Fatalf("id prompt = %q", got)
	}

	h.say(t, "99")
	if got := h.msg.last(t).text; got != invalidID {
		t.Fatalf("unknown id reply = %q", got)
	}
	h.say(t, "5")
	if got := h.msg.last(t).text; got != "Post 5: 12.50€ - Mat.\n"+chooseCategory {
		t.Fatalf("record header = %q", got)
	}
	h.say(t, "2. Hem")
	h.say(t, "20")
	h.say(t, "ny kommentar")

	p := h.store.purchases[0]
	if p.CategoryID != 2 || !p.Amount.Equal(decimal.NewFromInt(20)) || p.Comment == nil || *p.Comment != "ny kommentar" {
		t.Fatalf("corrected = %+v", p)
	}
	if got := h.msg.last(t).text; got != recordSaved+"\n\n"+idPrompt {
		t.Fatalf("saved reply = %q", got)
	}
	if len(h.pub.events) != 1 || h.pub.events[0].Kind != events.KindCorrected || h.pub.events[0].Category != "Hem" {
		t.Fatalf("events = %+v", h.pub.events)
	}
	if h.m.Current() != workflow.KindCorrectRecord {
		t.Fatalf("command = %s", h.m.Current())
	}
}

func TestCorrectRecordSelectorTokensAreStepInput(t *testing.T) {
	h := newHarness()
	h.store.cats = []storage.Category{{ID: 1, Name: "Mat"}}
	h.store.purchases = []storage.Purchase{
		{ID: 5, CategoryID: 1, CategoryName: "Mat", User: "anna", Amount: decimal.RequireFromString("12.50"),
			CreatedAt: time.Date(2024, 12, 3, 10, 0, 0, 0, time.UTC)},
	}

	h.say(t, "/korrigera_post")
	h.press(t, "2024-12-01", 10)
	h.press(t, "2024-12-31", 10)
	h.press(t, "OK", 11)
	// Options already applied: a second OK is a bad minimum amount.
	h.say(t, "OK")
	if got := h.msg.last(t).text; got != filterPrompt {
		t.Fatalf("OK as filter = %q", got)
	}
	h.say(t, "0")
	h.say(t, "OK")
	if got := h.msg.last(t).text; got != invalidID {
		t.Fatalf("OK as id = %q", got)
	}
	h.say(t, "5")
	h.say(t, "1. Mat")
	h.say(t, "->")
	if got := h.msg.last(t).text; got != invalidAmount {
		t.Fatalf("-> as amount = %q", got)
	}
	h.say(t, "20")
	h.say(t, "OK")
	if got := h.msg.last(t).text; got != recordSaved+"\n\n"+idPrompt {
		t.Fatalf("OK as comment = %q", got)
	}
	if c := h.store.purchases[0].Comment; c == nil || *c != "OK" {
		t.Fatalf("comment = %v", c)
	}

	sentBefore := len(h.msg.out)
	h.say(t, "5")
	h.say(t, "1. Mat")
	h.say(t, "20")
	h.say(t, "->")
	h.say(t, "2024-12-05")
	for _, m := range h.msg.out[sentBefore:] {
		if strings.HasPrefix(m.text, "Välj startdatum") || m.action == "edit_text" {
			t.Fatalf("calendar shown during correction: %+v", m)
		}
	}
	if c := h.store.purchases[0].Comment; c == nil || *c != "->" {
		t.Fatalf("comment = %v", c)
	}
	if got := h.msg.last(t).text; got != invalidID {
		t.Fatalf("date as id = %q", got)
	}
	if len(h.pub.events) != 2 {
		t.Fatalf("events = %+v", h.pub.events)
	}
}

func TestListRecordsPagingOutsidePeriodStage(t *testing.T) {
	h := newHarness()

	h.say(t, "/visa_poster")
	h.press(t, "2024-11-01", 10)
	h.press(t, "2024-11-30", 10)
	h.press(t, "->", 10)
	if got := h.msg.last(t); got.action != "send" || !strings.HasPrefix(got.text, "Kontrollera") {
		t.Fatalf("paging during options = %+v", got)
	}
	h.press(t, "OK", 11)
	h.say(t, "<--")
	if got := h.msg.last(t).text; got != filterPrompt {
		t.Fatalf("paging during filter = %q", got)
	}
}

func TestFactoryRejectsUnknownKind(t *testing.T) {
	factory := NewFactory(Deps{Messenger: &fakeMessenger{}, Store: &fakeStore{}})
	if _, err := factory("anna", workflow.Kind("/okänd")); !errors.Is(err, workflow.ErrUnknownKind) {
		t.Fatalf("err = %v", err)
	}
	for _, k := range workflow.MenuKinds {
		cmd, err := factory("anna", k)
		if err != nil || cmd.Name() != k {
			t.Fatalf("build %s: %v", k, err)
		}
		if _, ok := Descriptions[k]; !ok {
			t.Errorf("no description for %s", k)
		}
	}
}

func TestParseCategoryID(t *testing.T) {
	tests := []struct {
		in   string
		id   int64
		want bool
	}{
		{"3. Mat", 3, true},
		{"12.Resor", 12, true},
		{" 7 . x", 7, true},
		{"Mat", 0, false},
		{".Mat", 0, false},
		{"x. Mat", 0, false},
		{"0. Mat", 0, false},
		{"-2. Mat", 0, false},
	}
	for _, tt := range tests {
		id, ok := parseCategoryID(tt.in)
		if ok != tt.want || id != tt.id {
			t.Errorf("parseCategoryID(%q) = %d, %v", tt.in, id, ok)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12,5", "12.50"},
		{" 3.25 ", "3.25"},
		{"100", "100.00"},
		{"0", ""},
		{"-4", ""},
		{"tio", ""},
		{"", ""},
		{"10000000000", ""},
	}
	for _, tt := range tests {
		d, ok := parseAmount(tt.in)
		if tt.want == "" {
			if ok {
				t.Errorf("parseAmount(%q) accepted %s", tt.in, d)
			}
			continue
		}
		if !ok || d.StringFixed(2) != tt.want {
			t.Errorf("parseAmount(%q) = %s, %v", tt.in, d, ok)
		}
	}
}

func equalRows(got, want [][]string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if strings.Join(got[i], "|") != strings.Join(want[i], "|") {
			return false
		}
	}
	return true
}
