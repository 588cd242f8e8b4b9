package webclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDoWithRetry(t *testing.T) {
	errBoom := errors.New("boom")
	cases := []struct {
		name      string
		attempts  int
		statuses  []int
		wantCalls int
		wantErr   bool
	}{
		{"success first try", 3, []int{200}, 1, false},
		{"retries 503 then succeeds", 3, []int{503, 503, 200}, 3, false},
		{"gives up after attempts", 2, []int{503, 503, 503}, 2, true},
		{"no retry on 400", 3, []int{400, 200}, 1, true},
		{"transport error retried", 2, []int{0, 200}, 2, false},
		{"single attempt by default", 0, []int{429, 200}, 1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			_, _, err := DoWithRetry(context.Background(), tc.attempts, time.Millisecond, func() (int, []byte, error) {
				st := tc.statuses[calls]
				calls++
				if st == 200 {
					return st, []byte("ok"), nil
				}
				return st, nil, errBoom
			})
			if calls != tc.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tc.wantCalls)
			}
			if (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestDoWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, _, err := DoWithRetry(ctx, 5, time.Hour, func() (int, []byte, error) {
		calls++
		cancel()
		return 503, nil, errors.New("unavailable")
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Fatalf("err = %v calls = %d", err, calls)
	}
}

func TestPostJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test") != "1" || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	status, body, err := PostJSON(context.Background(), NewDefault(time.Second), srv.URL, map[string]string{"X-Test": "1"}, map[string]int{"a": 1})
	var se *StatusError
	if !errors.As(err, &se) || status != http.StatusBadGateway || string(body) != "upstream down" {
		t.Fatalf("status=%d body=%q err=%v", status, body, err)
	}
}
