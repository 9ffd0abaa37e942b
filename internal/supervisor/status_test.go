package supervisor

import (
	"testing"

	"github.com/shopspring/decimal"

	"marketmaker/internal/models"
)

func testPair() models.CurrencyPair {
	return models.CurrencyPair{
		First:  models.Currency{Name: "BTC", Places: 6},
		Second: models.Currency{Name: "USD", Places: 3},
	}
}

func TestStatusObserverTracksPriceAndOrders(t *testing.T) {
	p := testPair()
	o := newStatusObserver([]models.TradingOptions{{Pair: p}})

	o.apply(models.Event{Kind: models.Price, Pair: p, Value: decimal.RequireFromString("100.5")})
	o.apply(models.Event{Kind: models.ActiveOrders, Pair: p, Orders: []models.Order{{ID: "1"}, {ID: "2"}}})
	o.apply(models.Event{Kind: models.CompletedOrders, Pair: p, Orders: []models.Order{{ID: "3"}}})

	snap := o.snapshot()
	s, ok := snap.Pairs[p.String()]
	if !ok {
		t.Fatalf("pair %s missing from snapshot", p.String())
	}
	if s.Price != "100.5" {
		t.Fatalf("Price = %q, want %q", s.Price, "100.5")
	}
	if s.ActiveOrderCount != 2 {
		t.Fatalf("ActiveOrderCount = %d, want 2", s.ActiveOrderCount)
	}
	if s.CompletedOrderCount != 1 {
		t.Fatalf("CompletedOrderCount = %d, want 1", s.CompletedOrderCount)
	}
}

func TestStatusObserverMapsBalanceByCurrencyToBothSides(t *testing.T) {
	btcUsd := testPair()
	ethUsd := models.CurrencyPair{
		First:  models.Currency{Name: "ETH", Places: 6},
		Second: models.Currency{Name: "USD", Places: 3},
	}
	o := newStatusObserver([]models.TradingOptions{{Pair: btcUsd}, {Pair: ethUsd}})

	o.apply(models.Event{Kind: models.Balance, Currency: btcUsd.First, Value: decimal.RequireFromString("2")})
	o.apply(models.Event{Kind: models.Balance, Currency: models.Currency{Name: "USD"}, Value: decimal.RequireFromString("1000")})

	snap := o.snapshot()
	if snap.Pairs[btcUsd.String()].FirstBalance != "2" {
		t.Fatalf("BTC_USD.FirstBalance = %q, want %q", snap.Pairs[btcUsd.String()].FirstBalance, "2")
	}
	if snap.Pairs[btcUsd.String()].SecondBalance != "1000" {
		t.Fatalf("BTC_USD.SecondBalance = %q, want %q", snap.Pairs[btcUsd.String()].SecondBalance, "1000")
	}
	if snap.Pairs[ethUsd.String()].SecondBalance != "1000" {
		t.Fatalf("ETH_USD.SecondBalance = %q, want %q", snap.Pairs[ethUsd.String()].SecondBalance, "1000")
	}
	if snap.Pairs[ethUsd.String()].FirstBalance != "" {
		t.Fatalf("ETH_USD.FirstBalance = %q, want empty (no ETH balance event)", snap.Pairs[ethUsd.String()].FirstBalance)
	}
}
