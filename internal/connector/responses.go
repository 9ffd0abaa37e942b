package connector

// responses.go - разбор содержимого Return-поля торгового API:
// funds-словари (getInfo/Trade/CancelOrder) и списки ордеров
// (ActiveOrders/TradeHistory).

import (
	"strings"

	"github.com/shopspring/decimal"
	jsoniter "github.com/json-iterator/go"

	"marketmaker/internal/connectorerr"
	"marketmaker/internal/models"
)

// isEmptyResult сообщает, является ли err семантически пустым
// результатом биржи ("no orders"/"no trades") вместо настоящей ошибки.
// Такой результат не ретраится (connectorerr.Error.Retryable()) и
// маппится в пустую последовательность здесь же, в обработчике.
func isEmptyResult(err error) bool {
	return connectorerr.IsEmptyResult(err)
}

// decodeFunds разбирает {"funds": {"btc": "1.23", ...}} (форма ответа
// getInfo).
func decodeFunds(raw jsoniter.RawMessage) (map[string]decimal.Decimal, error) {
	var body struct {
		Funds map[string]string `json:"funds"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, connectorerr.Decode("getInfo", err)
	}
	return parseFunds(body.Funds)
}

// decodeFundsFromReturn разбирает ответ Trade/CancelOrder, в котором
// funds лежит прямо в return, без обёртки getInfo.
func decodeFundsFromReturn(raw jsoniter.RawMessage) (map[string]decimal.Decimal, error) {
	var body struct {
		Funds map[string]string `json:"funds"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, connectorerr.Decode("funds", err)
	}
	return parseFunds(body.Funds)
}

func parseFunds(raw map[string]string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(raw))
	for name, value := range raw {
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return nil, connectorerr.Decode("funds", err)
		}
		out[strings.ToLower(name)] = amount
	}
	return out, nil
}

// decodeOrders разбирает {"<id>": {...}, ...}, фильтруя по wirePair и
// нормализуя каждую запись.
func decodeOrders(raw jsoniter.RawMessage, pair models.CurrencyPair, wirePair string) ([]models.Order, error) {
	var body map[string]rawOrder
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, connectorerr.Decode("orders", err)
	}

	orders := make([]models.Order, 0, len(body))
	for id, entry := range body {
		if entry.Pair != "" && entry.Pair != wirePair {
			continue
		}
		orders = append(orders, normalizeOrder(id, entry, pair))
	}
	return orders, nil
}
