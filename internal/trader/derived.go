package trader

// derived.go - производные потоки Trader'а поверх bus-комбинаторов:
// баланс со знаком изменения, скачкообразная цена, вновь завершённые
// ордера по одному. Семантика дословно взята из trader.py этой же
// биржи (T1, jumping_price) и прозы о T2 там, где у trader.py нет
// аналога (совершённый ордер как триггер зеркального).

import (
	"context"

	"github.com/shopspring/decimal"

	"marketmaker/internal/bus"
	"marketmaker/internal/models"
	"marketmaker/pkg/utils"
)

// BalanceTick - тик потока balance(currency): текущий баланс и его
// изменение относительно предыдущего тика (0 на первом наблюдении).
type BalanceTick struct {
	Balance decimal.Decimal
	Change  decimal.Decimal
}

// balanceTicks сворачивает поток значений баланса в поток BalanceTick.
func balanceTicks(ctx context.Context, in <-chan decimal.Decimal) <-chan BalanceTick {
	type acc struct {
		tick BalanceTick
		have bool
	}
	scanned := bus.Scan(ctx, in, acc{}, func(a acc, v decimal.Decimal) acc {
		if !a.have {
			return acc{tick: BalanceTick{Balance: v, Change: decimal.Zero}, have: true}
		}
		return acc{tick: BalanceTick{Balance: v, Change: v.Sub(a.tick.Balance)}, have: true}
	})
	return bus.Map(ctx, scanned, func(a acc) BalanceTick { return a.tick })
}

// jumpingPrice сворачивает поток цен: значение заменяется только когда
// относительное изменение достигает threshold, дедуплицируется
// (distinct_until_changed) и теряет инициализирующий тик (skip(1)).
func jumpingPrice(ctx context.Context, in <-chan decimal.Decimal, threshold decimal.Decimal) <-chan decimal.Decimal {
	type acc struct {
		value decimal.Decimal
		have  bool
	}
	scanned := bus.Scan(ctx, in, acc{}, func(a acc, v decimal.Decimal) acc {
		if !a.have {
			return acc{value: v, have: true}
		}
		if utils.RelativeChange(v, a.value).GreaterThanOrEqual(threshold) {
			return acc{value: v, have: true}
		}
		return a
	})
	values := bus.Map(ctx, scanned, func(a acc) decimal.Decimal { return a.value })
	distinct := bus.DistinctUntilChanged(ctx, values, func(x, y decimal.Decimal) bool { return x.Equal(y) })
	return bus.Skip(ctx, distinct, 1)
}

// completedOrdersSingly сворачивает последовательные списки
// CompletedOrders в поток вновь появившихся ордеров: на каждый тик
// из latest_set вычитаются все id, виденные на предыдущих тиках, и
// остаток разворачивается в
// отдельные значения, так что каждый id выходит не более одного раза
// за всю историю.
func completedOrdersSingly(ctx context.Context, in <-chan []models.Order) <-chan models.Order {
	type acc struct {
		seen map[string]struct{}
		new  []models.Order
	}
	scanned := bus.Scan(ctx, in, acc{seen: map[string]struct{}{}}, func(a acc, orders []models.Order) acc {
		var fresh []models.Order
		for _, o := range orders {
			if _, ok := a.seen[o.ID]; ok {
				continue
			}
			a.seen[o.ID] = struct{}{}
			fresh = append(fresh, o)
		}
		return acc{seen: a.seen, new: fresh}
	})
	slices := bus.Map(ctx, scanned, func(a acc) []models.Order { return a.new })
	return bus.FlattenSlice(ctx, slices)
}
