package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	tele "gopkg.in/telebot.v4"
)

type okTransport struct{ calls int }

func (t *okTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.calls++
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{"ok":true,"result":true}`)),
		Request:    req,
	}, nil
}

func newTestBot(t *testing.T) (*tele.Bot, *okTransport) {
	t.Helper()
	rt := &okTransport{}
	b, err := tele.NewBot(tele.Settings{
		Token:   "123:test",
		Offline: true,
		Client:  &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("NewBot: %v", err)
	}
	return b, rt
}

type recordingSink struct {
	got []Update
}

func (s *recordingSink) HandleUpdate(_ context.Context, u Update) error {
	s.got = append(s.got, u)
	return nil
}

func TestTextRoutesForwardMessage(t *testing.T) {
	b, _ := newTestBot(t)
	sink := &recordingSink{}
	routes := TextRoutes(sink, TextOptions{})
	if len(routes) != 2 || routes[0].Endpoint != tele.OnText {
		t.Fatalf("unexpected routes: %+v", routes)
	}

	c := b.NewContext(tele.Update{ID: 1, Message: &tele.Message{
		ID:     10,
		Text:   "  Mat  ",
		Sender: &tele.User{ID: 5, Username: "anna"},
		Chat:   &tele.Chat{ID: 9},
	}})
	if err := routes[0].Handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(sink.got) != 1 {
		t.Fatalf("expected 1 update, got %d", len(sink.got))
	}
	want := Update{UserName: "anna", ChatID: 9, Text: "  Mat  "}
	if sink.got[0] != want {
		t.Fatalf("got %+v, want %+v", sink.got[0], want)
	}
}

func TestTextRoutesKeepTrailingSpace(t *testing.T) {
	b, _ := newTestBot(t)
	sink := &recordingSink{}
	routes := TextRoutes(sink, TextOptions{})

	c := b.NewContext(tele.Update{ID: 3, Message: &tele.Message{
		ID:     11,
		Text:   "Avbryt ",
		Sender: &tele.User{ID: 5, Username: "anna"},
		Chat:   &tele.Chat{ID: 9},
	}})
	if err := routes[0].Handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(sink.got) != 1 || sink.got[0].Text != "Avbryt " {
		t.Fatalf("got %+v", sink.got)
	}
}

func TestCallbackRouteAnswersAndForwardsToken(t *testing.T) {
	b, transport := newTestBot(t)
	sink := &recordingSink{}
	route := CallbackRoute(sink)

	c := b.NewContext(tele.Update{ID: 2, Callback: &tele.Callback{
		ID:      "cb1",
		Sender:  &tele.User{ID: 5, Username: "anna"},
		Message: &tele.Message{ID: 77, Chat: &tele.Chat{ID: 9}},
		Data:    "2024-11-05",
	}})
	if err := route.Handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if transport.calls == 0 {
		t.Fatalf("expected callback to be answered")
	}
	want := Update{UserName: "anna", ChatID: 9, Text: "2024-11-05", MessageID: 77, Callback: true}
	if len(sink.got) != 1 || sink.got[0] != want {
		t.Fatalf("got %+v, want %+v", sink.got, want)
	}
}

func TestForwardUsesCanonicalCommand(t *testing.T) {
	b, _ := newTestBot(t)
	sink := &recordingSink{}
	h := Forward(sink, "/ny_post")

	c := b.NewContext(tele.Update{ID: 3, Message: &tele.Message{
		Text:   "/ny_post@accbot extra",
		Sender: &tele.User{ID: 5, Username: "anna"},
		Chat:   &tele.Chat{ID: 9},
	}})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(sink.got) != 1 || sink.got[0].Text != "/ny_post" {
		t.Fatalf("unexpected updates: %+v", sink.got)
	}
}

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("send: %w", &tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}), "TG_403"},
		{fmt.Errorf("store: %w", context.DeadlineExceeded), "TIMEOUT"},
		{errors.New("boom"), "ERRORSTRING"},
	}
	for _, tc := range cases {
		if got := errorCode(tc.err); got != tc.want {
			t.Errorf("errorCode(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestNormalizeHandlerName(t *testing.T) {
	if got := normalizeHandlerName("/Korrigera_Post"); got != "korrigera_post" {
		t.Fatalf("got %s", got)
	}
	if got := normalizeHandlerName("  "); got != "unknown" {
		t.Fatalf("got %s", got)
	}
}
