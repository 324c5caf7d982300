package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	logx "taskbot/pkg/logx"
)

func testClient(url string) *Client {
	c := New(logx.Nop())
	c.url = url
	return c
}

func TestFetchPicksSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"symbol":"BTC_THB","last":2000000},
			{"symbol":"USDT_THB","last":35.5,"percent_change":0.2}
		]`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Fetch(context.Background(), "USDT_THB")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Symbol != "USDT_THB" || got.Last != 35.5 {
		t.Fatalf("Fetch = %+v", got)
	}
}

func TestFetchMissingSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"symbol":"BTC_THB","last":1}]`))
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).Fetch(context.Background(), "USDT_THB"); err == nil {
		t.Fatal("want error for missing symbol")
	}
}

func TestFetchRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"symbol":"USDT_THB","last":36}]`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Fetch(context.Background(), "USDT_THB")
	if err != nil {
		t.Fatalf("Fetch after retries: %v", err)
	}
	if got.Last != 36 {
		t.Fatalf("Fetch = %+v", got)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestFormatUSDTTHB(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"symbol":"USDT_THB","last":35.50}]`))
	}))
	defer srv.Close()

	out := testClient(srv.URL).FormatUSDTTHB(context.Background())
	for _, want := range []string{"USDT / THB", "35.50", "34.93", "34.79", "33.72"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatDegradesOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	out := testClient(srv.URL).FormatUSDTTHB(context.Background())
	if !strings.Contains(out, "Не удалось получить данные") {
		t.Fatalf("no degradation line:\n%s", out)
	}
}
