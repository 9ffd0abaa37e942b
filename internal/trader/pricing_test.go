package trader

import (
	"testing"

	"github.com/shopspring/decimal"

	"marketmaker/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func pair() models.CurrencyPair {
	return models.CurrencyPair{
		First:  models.Currency{Name: "BTC", Places: 6},
		Second: models.Currency{Name: "USD", Places: 3},
	}
}

// Property 7: mirror-pricing symmetry with margin_jitter=0.
func TestMirrorPricingSymmetry(t *testing.T) {
	opts := models.TradingOptions{
		Pair:         pair(),
		Margin:       dec("0.05"),
		MarginJitter: decimal.Zero,
		MinAmount:    dec("0.001"),
	}

	buyCompleted := models.Order{ID: "1", Type: models.Buy, Amount: dec("0.01"), Price: dec("100")}
	cmd, ok := mirrorOnCompletion(opts, buyCompleted, dec("1"), dec("1000"))
	if !ok {
		t.Fatal("expected mirror order")
	}
	if cmd.Kind != models.CreateSellOrder {
		t.Fatalf("kind = %v, want CreateSellOrder", cmd.Kind)
	}
	want := dec("100").Mul(dec("1.05"))
	if !cmd.Price.Equal(want) {
		t.Fatalf("price = %s, want %s", cmd.Price, want)
	}
	if !cmd.Amount.Equal(dec("0.01")) {
		t.Fatalf("amount = %s, want 0.01 (mirrors completed amount)", cmd.Amount)
	}

	sellCompleted := models.Order{ID: "2", Type: models.Sell, Amount: dec("0.01"), Price: dec("100")}
	cmd, ok = mirrorOnCompletion(opts, sellCompleted, dec("1"), dec("1000"))
	if !ok {
		t.Fatal("expected mirror order")
	}
	if cmd.Kind != models.CreateBuyOrder {
		t.Fatalf("kind = %v, want CreateBuyOrder", cmd.Kind)
	}
	want = dec("100").Mul(dec("0.95"))
	if !cmd.Price.Equal(want) {
		t.Fatalf("price = %s, want %s", cmd.Price, want)
	}
}

// Property 8: affordability guard.
func TestAffordabilityGuard(t *testing.T) {
	opts := models.TradingOptions{
		Pair:      pair(),
		Margin:    dec("0.05"),
		MinAmount: dec("0.001"),
	}

	opts.DealAmount = dec("10")
	if _, ok := sellAmount(opts, dec("1")); ok {
		t.Fatal("sell amount (10) > first_balance (1) must fail the guard")
	}

	opts.DealAmount = dec("10")
	if _, ok := buyAmount(opts, dec("100"), dec("50")); ok {
		t.Fatal("buy amount*price (500) > second_balance (100) must fail the guard")
	}
}

func TestSellOnJumpNotEnoughFunds(t *testing.T) {
	opts := models.TradingOptions{
		Pair:       pair(),
		Margin:     dec("0.05"),
		MinAmount:  dec("1"),
		DealAmount: decimal.Zero,
	}
	if _, ok := sellOnJump(opts, dec("100"), dec("0.5")); ok {
		t.Fatal("min_amount (1) > first_balance (0.5) must fail the guard")
	}
}

// S1 (jump emits buy).
func TestBuyOnJumpScenarioS1(t *testing.T) {
	opts := models.TradingOptions{
		Pair:           pair(),
		Margin:         dec("0.05"),
		MarginJitter:   decimal.Zero,
		MinAmount:      decimal.Zero,
		PriceJumpValue: dec("0.05"),
	}
	cmd, ok := buyOnJump(opts, dec("107"), dec("1000"))
	if !ok {
		t.Fatal("expected buy order")
	}
	wantPrice := dec("107").Mul(dec("0.95")).RoundBank(3)
	if !cmd.Price.Equal(wantPrice) {
		t.Fatalf("price = %s, want %s", cmd.Price, wantPrice)
	}
	wantAmount := dec("1000").Div(wantPrice).RoundBank(6)
	if !cmd.Amount.Equal(wantAmount) {
		t.Fatalf("amount = %s, want %s", cmd.Amount, wantAmount)
	}
}

func TestMirrorOnCompletionBelowMinAmount(t *testing.T) {
	opts := models.TradingOptions{
		Pair:      pair(),
		Margin:    dec("0.05"),
		MinAmount: dec("1"),
	}
	completed := models.Order{ID: "1", Type: models.Sell, Amount: dec("0.01"), Price: dec("100")}
	if _, ok := mirrorOnCompletion(opts, completed, dec("1"), dec("1000")); ok {
		t.Fatal("amount below min_amount must not emit a mirror order")
	}
}
