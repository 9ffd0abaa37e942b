package trader

// pricing.go - ценообразование и проверка достаточности средств для
// T1 (скачок цены) и T2 (зеркало завершённого ордера). T2 использует ту
// же формулу маржи, что и T1, но применяет её к цене завершённого
// ордера вместо текущей рыночной.

import (
	"github.com/shopspring/decimal"

	"marketmaker/internal/models"
	"marketmaker/pkg/utils"
)

var one = decimal.NewFromInt(1)

func sellPrice(base, margin decimal.Decimal, second models.Currency) decimal.Decimal {
	return utils.Quantize(base.Mul(one.Add(margin)), second.Places)
}

func buyPrice(base, margin decimal.Decimal, second models.Currency) decimal.Decimal {
	return utils.Quantize(base.Mul(one.Sub(margin)), second.Places)
}

// effectiveMargin = options.margin + случайный джиттер в [-jitter,+jitter].
func effectiveMargin(opts models.TradingOptions) decimal.Decimal {
	return opts.Margin.Add(utils.RandomMarginJitter(opts.MarginJitter))
}

// sellAmount: amount = deal_amount, либо max(balance, min_amount);
// guard: amount <= firstBalance.
func sellAmount(opts models.TradingOptions, firstBalance decimal.Decimal) (decimal.Decimal, bool) {
	amount := opts.DealAmount
	if !opts.HasDealAmount() {
		amount = decimal.Max(firstBalance, opts.MinAmount)
	}
	if amount.GreaterThan(firstBalance) {
		return decimal.Zero, false
	}
	return amount, true
}

// buyAmount: amount = deal_amount, либо max(min_amount,
// quantize(secondBalance/buyPx, first.places)); guard: amount*buyPx
// <= secondBalance.
func buyAmount(opts models.TradingOptions, secondBalance, buyPx decimal.Decimal) (decimal.Decimal, bool) {
	amount := opts.DealAmount
	if !opts.HasDealAmount() {
		computed := utils.Quantize(secondBalance.Div(buyPx), opts.Pair.First.Places)
		amount = decimal.Max(opts.MinAmount, computed)
	}
	if amount.Mul(buyPx).GreaterThan(secondBalance) {
		return decimal.Zero, false
	}
	return amount, true
}

// sellOnJump - T1, сторона продажи: текущая рыночная цена + баланс
// первой валюты.
func sellOnJump(opts models.TradingOptions, price, firstBalance decimal.Decimal) (models.Command, bool) {
	px := sellPrice(price, effectiveMargin(opts), opts.Pair.Second)
	amount, ok := sellAmount(opts, firstBalance)
	if !ok {
		return models.Command{}, false
	}
	return models.Command{Kind: models.CreateSellOrder, Pair: opts.Pair, Amount: amount, Price: px}, true
}

// buyOnJump - T1, сторона покупки: текущая рыночная цена + баланс
// второй валюты.
func buyOnJump(opts models.TradingOptions, price, secondBalance decimal.Decimal) (models.Command, bool) {
	px := buyPrice(price, effectiveMargin(opts), opts.Pair.Second)
	amount, ok := buyAmount(opts, secondBalance, px)
	if !ok {
		return models.Command{}, false
	}
	return models.Command{Kind: models.CreateBuyOrder, Pair: opts.Pair, Amount: amount, Price: px}, true
}

// mirrorOnCompletion - T2: на завершённый ордер типа τ строит
// зеркальный (тип развёрнут, та же сумма, новая цена вокруг цены
// завершённого ордера). Возвращает false, если сумма меньше
// min_amount или не проходит проверку платёжеспособности.
func mirrorOnCompletion(opts models.TradingOptions, completed models.Order, firstBalance, secondBalance decimal.Decimal) (models.Command, bool) {
	if completed.Amount.LessThan(opts.MinAmount) {
		return models.Command{}, false
	}
	margin := effectiveMargin(opts)

	if completed.Type == models.Buy {
		px := sellPrice(completed.Price, margin, opts.Pair.Second)
		if completed.Amount.GreaterThan(firstBalance) {
			return models.Command{}, false
		}
		return models.Command{Kind: models.CreateSellOrder, Pair: opts.Pair, Amount: completed.Amount, Price: px}, true
	}

	px := buyPrice(completed.Price, margin, opts.Pair.Second)
	if completed.Amount.Mul(px).GreaterThan(secondBalance) {
		return models.Command{}, false
	}
	return models.Command{Kind: models.CreateBuyOrder, Pair: opts.Pair, Amount: completed.Amount, Price: px}, true
}
