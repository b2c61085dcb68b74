package telegram

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"testing"
	"time"
)

type flakyTransport struct {
	errs  []error
	calls int
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	if f.calls <= len(f.errs) {
		return nil, f.errs[f.calls-1]
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{"ok":true}`)), Request: req}, nil
}

func apiRequest(t *testing.T, method string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot123:test/"+method, strings.NewReader(`{"chat_id":1}`))
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestRetryTransport(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	reset := &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}
	cases := []struct {
		name      string
		method    string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{"send retried after failed dial", "sendMessage", []error{dial}, 2, false},
		{"send not repeated after reset", "sendMessage", []error{reset}, 1, true},
		{"edit repeated after reset", "editMessageText", []error{reset, reset}, 3, false},
		{"gives up after attempts", "getUpdates", []error{reset, reset, reset}, 3, true},
		{"plain error not retried", "getUpdates", []error{errors.New("bad")}, 1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base := &flakyTransport{errs: tc.errs}
			rt := &retryTransport{base: base, maxRetries: 2}
			resp, err := rt.RoundTrip(apiRequest(t, tc.method))
			if resp != nil {
				resp.Body.Close()
			}
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if base.calls != tc.wantCalls {
				t.Fatalf("calls = %d, want %d", base.calls, tc.wantCalls)
			}
		})
	}
}

func TestBuildHTTPClientOutlastsLongPoll(t *testing.T) {
	c := BuildHTTPClient(30 * time.Second)
	if c.Timeout <= 30*time.Second {
		t.Fatalf("client timeout %v does not cover the poll window", c.Timeout)
	}
	rt, ok := c.Transport.(*retryTransport)
	if !ok {
		t.Fatalf("transport = %T", c.Transport)
	}
	tr := rt.base.(*http.Transport)
	if tr.ResponseHeaderTimeout <= 30*time.Second {
		t.Fatalf("header timeout %v does not cover the poll window", tr.ResponseHeaderTimeout)
	}
}
