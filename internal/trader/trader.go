// Package trader - одна пара торговли: таймеры опроса, производные
// потоки и триггеры создания ордеров. Каждый экземпляр
// - единственный сериализующий воркер для своей пары:
// всё состояние (последняя известная цена, балансы) живёт только в
// горутине Run, снаружи недоступно.
package trader

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketmaker/internal/bus"
	"marketmaker/internal/metrics"
	"marketmaker/internal/models"
)

const (
	serverTimePeriod      = time.Second
	pricePeriod           = 10 * time.Second
	balancePeriod         = 10 * time.Minute
	activeOrdersPeriod    = time.Hour
	completedOrdersPeriod = 10 * time.Second

	timePriceLogPeriod = 10 * time.Minute

	eventBufferSize = 16
)

// Trader - опрос и принятие решений для одной сконфигурированной пары.
type Trader struct {
	opts          models.TradingOptions
	outdatePeriod time.Duration

	commands *bus.Bus[models.Command]
	events   *bus.Bus[models.Event]
	logger   *zap.Logger
}

// New строит Trader для одной пары. outdatePeriod - порог
// устаревания ордера (ORDER_OUTDATE_PERIOD, ≈35 дней), общий для всех
// пар в текущей конфигурации (см. internal/config).
func New(opts models.TradingOptions, outdatePeriod time.Duration, commands *bus.Bus[models.Command], events *bus.Bus[models.Event], logger *zap.Logger) *Trader {
	return &Trader{
		opts:          opts,
		outdatePeriod: outdatePeriod,
		commands:      commands,
		events:        events,
		logger:        logger.With(zap.String("pair", opts.Pair.String())),
	}
}

func priceEventsForPair(pair models.CurrencyPair) func(models.Event) bool {
	return func(e models.Event) bool { return e.Kind == models.Price && e.Pair.Equal(pair) }
}

func balanceEventsForCurrency(c models.Currency) func(models.Event) bool {
	return func(e models.Event) bool { return e.Kind == models.Balance && e.Currency.Name == c.Name }
}

func activeOrdersEventsForPair(pair models.CurrencyPair) func(models.Event) bool {
	return func(e models.Event) bool { return e.Kind == models.ActiveOrders && e.Pair.Equal(pair) }
}

func completedOrdersEventsForPair(pair models.CurrencyPair) func(models.Event) bool {
	return func(e models.Event) bool { return e.Kind == models.CompletedOrders && e.Pair.Equal(pair) }
}

func timeEvents(e models.Event) bool { return e.Kind == models.Time }

// publish отправляет команду на шину и учитывает её в метриках.
func (t *Trader) publish(cmd models.Command) {
	t.commands.Publish(cmd)
	metrics.RecordCommandEmitted(t.opts.Pair.String(), cmd.Kind.String())
}

// Run запускает таймеры опроса, разворачивает производные потоки и
// обслуживает единственный диспетчерский select, пока ctx не
// отменится. Блокирует вызывающего.
func (t *Trader) Run(ctx context.Context) {
	name := "trader:" + t.opts.Pair.String()

	subTime := t.events.Subscribe(name+":time", eventBufferSize)
	defer subTime.Close()
	subPriceJump := t.events.Subscribe(name+":price-jump", eventBufferSize)
	defer subPriceJump.Close()
	subPriceLog := t.events.Subscribe(name+":price-log", eventBufferSize)
	defer subPriceLog.Close()
	subBalanceFirst := t.events.Subscribe(name+":balance-first", eventBufferSize)
	defer subBalanceFirst.Close()
	subBalanceSecond := t.events.Subscribe(name+":balance-second", eventBufferSize)
	defer subBalanceSecond.Close()
	subActiveOrders := t.events.Subscribe(name+":active-orders", eventBufferSize)
	defer subActiveOrders.Close()
	subCompletedOrders := t.events.Subscribe(name+":completed-orders", eventBufferSize)
	defer subCompletedOrders.Close()
	subCompletedOrdersLog := t.events.Subscribe(name+":completed-orders-log", eventBufferSize)
	defer subCompletedOrdersLog.Close()

	toValue := func(e models.Event) decimal.Decimal { return e.Value }
	toTime := func(e models.Event) time.Time { return e.At }
	toOrders := func(e models.Event) []models.Order { return e.Orders }

	priceJumpValues := bus.Map(ctx, bus.Filter(ctx, subPriceJump.C(), priceEventsForPair(t.opts.Pair)), toValue)
	jumping := jumpingPrice(ctx, priceJumpValues, t.opts.PriceJumpValue)

	priceLogValues := bus.Map(ctx, bus.Filter(ctx, subPriceLog.C(), priceEventsForPair(t.opts.Pair)), toValue)
	timeLogValues := bus.Map(ctx, bus.Filter(ctx, subTime.C(), timeEvents), toTime)
	type tpTick struct {
		at    time.Time
		price decimal.Decimal
	}
	timePriceTicks := bus.CombineLatest2(ctx, timeLogValues, priceLogValues, func(at time.Time, p decimal.Decimal) tpTick {
		return tpTick{at: at, price: p}
	})
	timePriceLog := bus.ThrottleFirst(ctx, timePriceTicks, timePriceLogPeriod)

	firstBalanceValues := bus.Map(ctx, bus.Filter(ctx, subBalanceFirst.C(), balanceEventsForCurrency(t.opts.Pair.First)), toValue)
	firstBalanceCh := balanceTicks(ctx, firstBalanceValues)
	secondBalanceValues := bus.Map(ctx, bus.Filter(ctx, subBalanceSecond.C(), balanceEventsForCurrency(t.opts.Pair.Second)), toValue)
	secondBalanceCh := balanceTicks(ctx, secondBalanceValues)

	activeOrdersCh := bus.Map(ctx, bus.Filter(ctx, subActiveOrders.C(), activeOrdersEventsForPair(t.opts.Pair)), toOrders)

	completedOrdersCh := bus.Map(ctx, bus.Filter(ctx, subCompletedOrders.C(), completedOrdersEventsForPair(t.opts.Pair)), toOrders)
	completedSingly := completedOrdersSingly(ctx, completedOrdersCh)
	completedOrdersLogCh := bus.Map(ctx, bus.Filter(ctx, subCompletedOrdersLog.C(), completedOrdersEventsForPair(t.opts.Pair)), toOrders)

	serverTimeTicks := bus.Timer(ctx, serverTimePeriod, true)
	priceTicks := bus.Timer(ctx, pricePeriod, true)
	balanceTicksTimer := bus.Timer(ctx, balancePeriod, true)
	activeOrdersTicks := bus.Timer(ctx, activeOrdersPeriod, true)
	completedOrdersTicks := bus.Timer(ctx, completedOrdersPeriod, true)

	var firstBalance, secondBalance BalanceTick
	haveFirstBalance, haveSecondBalance := false, false
	loggedFirstBalance, loggedSecondBalance := false, false

	for {
		select {
		case <-ctx.Done():
			return

		case <-serverTimeTicks:
			t.publish(models.Command{Kind: models.GetServerTime})
		case <-priceTicks:
			t.publish(models.Command{Kind: models.GetPrice, Pair: t.opts.Pair})
		case <-balanceTicksTimer:
			t.publish(models.Command{Kind: models.GetBalance, Currency: t.opts.Pair.First})
			t.publish(models.Command{Kind: models.GetBalance, Currency: t.opts.Pair.Second})
		case <-activeOrdersTicks:
			t.publish(models.Command{Kind: models.GetActiveOrders, Pair: t.opts.Pair})
		case <-completedOrdersTicks:
			t.publish(models.Command{Kind: models.GetCompletedOrders, Pair: t.opts.Pair})

		case tick, ok := <-timePriceLog:
			if !ok {
				continue
			}
			t.logger.Info("tick",
				zap.Time("server_time", tick.at),
				zap.String("price", tick.price.String()))

		case tick, ok := <-firstBalanceCh:
			if !ok {
				continue
			}
			if !loggedFirstBalance || !tick.Balance.Equal(firstBalance.Balance) {
				t.logger.Info("balance changed",
					zap.String("currency", t.opts.Pair.First.Name),
					zap.String("balance", tick.Balance.String()),
					zap.String("change", tick.Change.String()))
				loggedFirstBalance = true
			}
			firstBalance = tick
			haveFirstBalance = true

		case tick, ok := <-secondBalanceCh:
			if !ok {
				continue
			}
			if !loggedSecondBalance || !tick.Balance.Equal(secondBalance.Balance) {
				t.logger.Info("balance changed",
					zap.String("currency", t.opts.Pair.Second.Name),
					zap.String("balance", tick.Balance.String()),
					zap.String("change", tick.Change.String()))
				loggedSecondBalance = true
			}
			secondBalance = tick
			haveSecondBalance = true

		case price, ok := <-jumping:
			if !ok {
				continue
			}
			if haveFirstBalance {
				if cmd, ok := sellOnJump(t.opts, price, firstBalance.Balance); ok {
					t.publish(cmd)
				} else {
					t.logger.Warn("not enough funds", zap.String("side", "sell"), zap.String("price", price.String()))
				}
			}
			if haveSecondBalance {
				if cmd, ok := buyOnJump(t.opts, price, secondBalance.Balance); ok {
					t.publish(cmd)
				} else {
					t.logger.Warn("not enough funds", zap.String("side", "buy"), zap.String("price", price.String()))
				}
			}

		case completed, ok := <-completedSingly:
			if !ok {
				continue
			}
			if !haveFirstBalance || !haveSecondBalance {
				continue
			}
			if cmd, ok := mirrorOnCompletion(t.opts, completed, firstBalance.Balance, secondBalance.Balance); ok {
				t.publish(cmd)
			} else {
				t.logger.Warn("not enough funds", zap.String("side", "mirror"), zap.String("completed_order", completed.ID))
			}

		case orders, ok := <-activeOrdersCh:
			if !ok {
				continue
			}
			metrics.RecordEventConsumed(t.opts.Pair.String(), models.ActiveOrders.String())
			t.logger.Info("active orders", zap.Int("count", len(orders)))
			now := time.Now().UTC()
			for _, o := range orders {
				if o.Age(now) > t.outdatePeriod {
					t.publish(models.Command{Kind: models.CancelOrder, OrderID: o.ID})
				}
			}

		case orders, ok := <-completedOrdersLogCh:
			if !ok {
				continue
			}
			metrics.RecordEventConsumed(t.opts.Pair.String(), models.CompletedOrders.String())
			t.logger.Info("completed orders", zap.Int("count", len(orders)))
		}
	}
}
