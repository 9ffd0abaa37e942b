package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"marketmaker/pkg/ratelimit"
)

func TestPublicAPITickerRetriesOnTransportFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			// Закрываем соединение без ответа - транспортная ошибка на стороне клиента.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("ResponseWriter does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("hijack: %v", err)
			}
			conn.Close()
			return
		}
		w.Write([]byte(`{"btc_usd":{"last":"100.5"}}`))
	}))
	t.Cleanup(server.Close)

	p := newPublicAPI(Config{SiteURL: server.URL}, http.DefaultClient, zap.NewNop())

	last, err := p.ticker(context.Background(), "btc_usd")
	if err != nil {
		t.Fatalf("ticker: %v", err)
	}
	if last.String() != "100.5" {
		t.Fatalf("last = %s, want 100.5", last.String())
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls = %d, want 3 (2 failures + 1 success)", got)
	}
}

func TestPublicAPITickerRespectsRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"btc_usd":{"last":"100.5"}}`))
	}))
	t.Cleanup(server.Close)

	p := newPublicAPI(Config{SiteURL: server.URL}, http.DefaultClient, zap.NewNop())
	p.limiter = ratelimit.NewRateLimiter(10, 1) // burst of 1: second call must wait ~100ms

	if _, err := p.ticker(context.Background(), "btc_usd"); err != nil {
		t.Fatalf("first ticker call: %v", err)
	}

	start := time.Now()
	if _, err := p.ticker(context.Background(), "btc_usd"); err != nil {
		t.Fatalf("second ticker call: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("second call returned after %v, want rate limiter to have delayed it", elapsed)
	}
}

func TestPublicAPITickerDoesNotRetryDecodeErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`not json`))
	}))
	t.Cleanup(server.Close)

	p := newPublicAPI(Config{SiteURL: server.URL}, http.DefaultClient, zap.NewNop())

	if _, err := p.ticker(context.Background(), "btc_usd"); err == nil {
		t.Fatal("expected decode error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls = %d, want 1 (decode errors are not retried)", got)
	}
}
