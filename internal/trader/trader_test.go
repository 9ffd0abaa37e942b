package trader

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketmaker/internal/bus"
	"marketmaker/internal/models"
)

func waitForCommand(t *testing.T, sub *bus.Subscription[models.Command], timeout time.Duration, match func(models.Command) bool) models.Command {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case cmd := <-sub.C():
			if match(cmd) {
				return cmd
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching command")
		}
	}
}

// S3 (stale cancel).
func TestTraderCancelsStaleOrder(t *testing.T) {
	p := pair()
	opts := models.TradingOptions{
		Pair:      p,
		Margin:    dec("0.05"),
		MinAmount: dec("0.001"),
	}

	commands := bus.New[models.Command]("commands", nil)
	events := bus.New[models.Event]("events", nil)

	tr := New(opts, 35*24*time.Hour, commands, events, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)

	cmdSub := commands.Subscribe("observer", 32)
	defer cmdSub.Close()

	time.Sleep(50 * time.Millisecond) // let Run subscribe before publishing

	stale := models.Order{
		ID:      "stale-1",
		Type:    models.Sell,
		Amount:  dec("0.01"),
		Price:   dec("100"),
		Created: time.Now().Add(-40 * 24 * time.Hour),
	}
	events.Publish(models.Event{Kind: models.ActiveOrders, Pair: p, Orders: []models.Order{stale}})

	cmd := waitForCommand(t, cmdSub, 2*time.Second, func(c models.Command) bool {
		return c.Kind == models.CancelOrder
	})
	if cmd.OrderID != "stale-1" {
		t.Fatalf("cancelled order id = %s, want stale-1", cmd.OrderID)
	}
}

func TestTraderEmitsImmediatePolls(t *testing.T) {
	p := pair()
	opts := models.TradingOptions{Pair: p, Margin: dec("0.05"), MinAmount: dec("0.001")}

	commands := bus.New[models.Command]("commands", nil)
	events := bus.New[models.Event]("events", nil)
	tr := New(opts, 35*24*time.Hour, commands, events, zap.NewNop())

	cmdSub := commands.Subscribe("observer", 32)
	defer cmdSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)

	// The immediate polls come from timers that fire together, so they
	// arrive in no fixed order; each kind is ticked off as it shows up.
	pending := map[models.CommandKind]bool{
		models.GetServerTime:   true,
		models.GetPrice:        true,
		models.GetActiveOrders: true,
	}
	deadline := time.After(time.Second)
	for len(pending) > 0 {
		select {
		case cmd := <-cmdSub.C():
			delete(pending, cmd.Kind)
		case <-deadline:
			t.Fatalf("timed out waiting for immediate polls, still missing %v", pending)
		}
	}
}

// S1 (jump emits buy), exercised through the full event bus.
func TestTraderJumpEmitsBuyOrder(t *testing.T) {
	p := pair()
	opts := models.TradingOptions{
		Pair:           p,
		Margin:         dec("0.05"),
		MarginJitter:   decimal.Zero,
		MinAmount:      decimal.Zero,
		PriceJumpValue: dec("0.05"),
	}

	commands := bus.New[models.Command]("commands", nil)
	events := bus.New[models.Event]("events", nil)
	tr := New(opts, 35*24*time.Hour, commands, events, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)

	cmdSub := commands.Subscribe("observer", 32)
	defer cmdSub.Close()

	time.Sleep(50 * time.Millisecond)

	events.Publish(models.Event{Kind: models.Price, Pair: p, Value: dec("100")})
	events.Publish(models.Event{Kind: models.Balance, Currency: p.Second, Value: dec("1000")})
	time.Sleep(100 * time.Millisecond) // let the balance tick reach the dispatch loop first
	events.Publish(models.Event{Kind: models.Price, Pair: p, Value: dec("107")})

	cmd := waitForCommand(t, cmdSub, 2*time.Second, func(c models.Command) bool { return c.Kind == models.CreateBuyOrder })
	wantPrice := dec("107").Mul(dec("0.95")).RoundBank(3)
	if !cmd.Price.Equal(wantPrice) {
		t.Fatalf("price = %s, want %s", cmd.Price, wantPrice)
	}
}
