package utils

// validator.go - валидация конфигурации торговых пар.
//
// Назначение:
// Проверка корректности TradingOptions, загруженных из переменной
// окружения TRADING, до того как они дойдут до Trader'а.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCurrencyName  = errors.New("currency name cannot be empty")
	ErrNonPositivePlaces  = errors.New("currency places must be non-negative")
	ErrSameCurrency       = errors.New("pair currencies must differ")
	ErrNegativeMargin     = errors.New("margin must be non-negative")
	ErrNegativeJitter     = errors.New("margin_jitter must be non-negative")
	ErrNonPositiveAmount  = errors.New("min_amount must be positive")
	ErrNegativeDealAmount = errors.New("deal_amount must be non-negative")
	ErrNonPositiveJump    = errors.New("price_jump_value must be positive")
)

// ValidateCurrencyName проверяет, что имя валюты не пусто и состоит
// только из букв/цифр (как биржевой тикер: BTC, USD, USDT, ...).
func ValidateCurrencyName(name string) error {
	if name == "" {
		return ErrEmptyCurrencyName
	}
	for _, r := range name {
		if !(r >= 'A' && r <= 'Z') && !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') {
			return fmt.Errorf("currency name %q: invalid character %q", name, r)
		}
	}
	return nil
}

// ValidatePlaces проверяет, что число знаков квантования неотрицательно.
func ValidatePlaces(places int32) error {
	if places < 0 {
		return ErrNonPositivePlaces
	}
	return nil
}

// ValidatePairNames проверяет, что first и second различны без учёта
// регистра (так же, как их сравнивает wire-кодирование пары).
func ValidatePairNames(first, second string) error {
	if strings.EqualFold(first, second) {
		return ErrSameCurrency
	}
	return nil
}

// ValidateTradingAmounts проверяет числовые инварианты TradingOptions
// независимо от модели Currency/CurrencyPair (используется при загрузке
// конфигурации).
func ValidateTradingAmounts(margin, marginJitter, minAmount, dealAmount, priceJumpValue decimal.Decimal) error {
	if margin.IsNegative() {
		return ErrNegativeMargin
	}
	if marginJitter.IsNegative() {
		return ErrNegativeJitter
	}
	if !minAmount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if dealAmount.IsNegative() {
		return ErrNegativeDealAmount
	}
	if !priceJumpValue.IsPositive() {
		return ErrNonPositiveJump
	}
	return nil
}
