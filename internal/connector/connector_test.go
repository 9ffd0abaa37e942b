package connector

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketmaker/internal/bus"
	"marketmaker/internal/models"
)

func testPair() models.CurrencyPair {
	return models.CurrencyPair{
		First:  models.Currency{Name: "BTC", Places: 6},
		Second: models.Currency{Name: "USD", Places: 3},
	}
}

func newTestConnector(t *testing.T, handler http.HandlerFunc) (*Connector, *bus.Bus[models.Event]) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	events := bus.New[models.Event]("test-events", nil)
	cfg := Config{
		SiteURL:   server.URL,
		APIKey:    "test-key",
		APISecret: "test-secret",
		DataDir:   t.TempDir(),
	}
	c, err := New(cfg, events, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c, events
}

func TestHandlePriceQuantizesToSecondPlaces(t *testing.T) {
	c, events := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"btc_usd":{"last":"107.12345"}}`))
	})
	sub := events.Subscribe("sub", 4)

	c.handlePrice(context.Background(), testPair())

	select {
	case ev := <-sub.C():
		if ev.Kind != models.Price {
			t.Fatalf("kind = %v, want Price", ev.Kind)
		}
		want, _ := decimal.NewFromString("107.123")
		if !ev.Value.Equal(want) {
			t.Fatalf("value = %s, want 107.123", ev.Value)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestHandleActiveOrdersEmptyResultNoRetry(t *testing.T) {
	calls := 0
	c, events := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"success":0,"error":"no orders"}`))
	})
	sub := events.Subscribe("sub", 4)

	c.handleActiveOrders(context.Background(), testPair())

	select {
	case ev := <-sub.C():
		if ev.Kind != models.ActiveOrders {
			t.Fatalf("kind = %v", ev.Kind)
		}
		if len(ev.Orders) != 0 {
			t.Fatalf("orders = %v, want empty", ev.Orders)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on semantic empty result)", calls)
	}
}

func TestHandleActiveOrdersNormalizesAndSorts(t *testing.T) {
	c, events := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		body := `{"success":1,"return":{
			"2":{"pair":"btc_usd","type":"sell","amount":"0.5","rate":"200","timestamp_created":1700000000},
			"1":{"pair":"btc_usd","type":"buy","amount":"0.25","rate":"100","timestamp_created":1700000001}
		}}`
		w.Write([]byte(body))
	})
	sub := events.Subscribe("sub", 4)

	c.handleActiveOrders(context.Background(), testPair())

	select {
	case ev := <-sub.C():
		if len(ev.Orders) != 2 {
			t.Fatalf("orders = %v, want 2", ev.Orders)
		}
		if !ev.Orders[0].Price.LessThan(ev.Orders[1].Price) {
			t.Fatalf("orders not sorted ascending by price: %v", ev.Orders)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestTradeAPISignsRequest(t *testing.T) {
	var gotKey, gotSign, gotBody string
	c, _ := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Key")
		gotSign = r.Header.Get("Sign")
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Write([]byte(`{"success":1,"return":{"funds":{"btc":"1.5"}}}`))
	})

	if _, err := c.trade.call(context.Background(), "getInfo", nil); err != nil {
		t.Fatalf("call: %v", err)
	}

	if gotKey != "test-key" {
		t.Fatalf("Key header = %q, want test-key", gotKey)
	}
	if gotSign == "" {
		t.Fatal("Sign header missing")
	}
	wantSign := sign("test-secret", gotBody)
	if gotSign != wantSign {
		t.Fatalf("Sign = %q, want %q (HMAC-SHA512 of body)", gotSign, wantSign)
	}
	if !strings.HasPrefix(gotBody, "method=getInfo&nonce=") {
		t.Fatalf("body = %q, want method=getInfo&nonce=... prefix", gotBody)
	}
}

func TestEncodeBodyDeterministicOrder(t *testing.T) {
	body := encodeBody("Trade", 1, map[string]string{"pair": "btc_usd", "amount": "1", "rate": "100", "type": "sell"})
	want := "method=Trade&nonce=1&amount=1&pair=btc_usd&rate=100&type=sell"
	if body != want {
		t.Fatalf("encodeBody = %q, want %q", body, want)
	}
}

func TestWirePair(t *testing.T) {
	pair := models.CurrencyPair{First: models.Currency{Name: "BTC"}, Second: models.Currency{Name: "USD"}}
	if got := wirePair(pair); got != "btc_usd" {
		t.Fatalf("wirePair = %q, want btc_usd", got)
	}
}

