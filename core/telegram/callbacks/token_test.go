package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestToken(t *testing.T) {
	cases := []struct {
		cb   *tele.Callback
		want string
	}{
		{nil, ""},
		{&tele.Callback{Data: "2024-11-01"}, "2024-11-01"},
		{&tele.Callback{Data: "\fcheck_2"}, "check_2"},
		{&tele.Callback{Unique: "cal", Data: "next"}, "cal|next"},
		{&tele.Callback{Unique: "cal"}, "cal"},
	}
	for _, tc := range cases {
		if got := Token(tc.cb); got != tc.want {
			t.Errorf("Token(%+v) = %q, want %q", tc.cb, got, tc.want)
		}
	}
}

func TestMessageID(t *testing.T) {
	if MessageID(&tele.Callback{}) != 0 {
		t.Fatal("callback without message must yield 0")
	}
	if got := MessageID(&tele.Callback{Message: &tele.Message{ID: 15}}); got != 15 {
		t.Fatalf("MessageID = %d, want 15", got)
	}
}
