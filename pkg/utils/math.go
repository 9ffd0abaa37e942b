package utils

// math.go - математические утилиты
//
// Назначение:
// Квантование и округление денежных величин для торгового ядра.
// Все суммы и цены представлены decimal.Decimal (arbitrary-precision),
// плавающая точка здесь не используется ни в одном публичном API.

import (
	"math/rand"

	"github.com/shopspring/decimal"
)

// Quantize округляет value до places знаков после запятой методом
// half-even (банковское округление), как того требует валюта в
// денежной модели движка.
func Quantize(value decimal.Decimal, places int32) decimal.Decimal {
	return value.RoundBank(places)
}

// RelativeChange возвращает |current-previous| / previous. Вызывающий
// отвечает за то, чтобы previous не было нулевым (previous=0 трактуется
// как "ещё не было наблюдения" и обрабатывается отдельно в trader).
func RelativeChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Abs().Div(previous)
}

// JitterPlaces - точность квантования margin jitter, 4 знака после запятой.
const JitterPlaces = 4

// RandomMarginJitter возвращает равномерно распределённое значение в
// [-maxJitter, +maxJitter], квантованное до JitterPlaces знаков.
// maxJitter=0 всегда возвращает ноль без обращения к rand.
func RandomMarginJitter(maxJitter decimal.Decimal) decimal.Decimal {
	if !maxJitter.IsPositive() {
		return decimal.Zero
	}
	// uniform(-maxJitter, +maxJitter)
	u := decimal.NewFromFloat(rand.Float64()) // [0,1)
	span := maxJitter.Mul(decimal.NewFromInt(2))
	raw := u.Mul(span).Sub(maxJitter)
	return Quantize(raw, JitterPlaces)
}
