package connector

import (
	"time"

	"github.com/shopspring/decimal"

	"marketmaker/internal/models"
	"marketmaker/pkg/utils"
)

// rawOrder - форма одного ордера в ответах ActiveOrders/TradeHistory
// до нормализации в models.Order.
type rawOrder struct {
	Pair             string `json:"pair"`
	Type             string `json:"type"`
	Amount           string `json:"amount"`
	Rate             string `json:"rate"`
	TimestampCreated int64  `json:"timestamp_created"`
	Timestamp        int64  `json:"timestamp"`
}

// normalizeOrder конвертирует id+rawOrder в models.Order, квантуя
// amount/price к точности валют пары.
func normalizeOrder(id string, raw rawOrder, pair models.CurrencyPair) models.Order {
	amount, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		amount = decimal.Zero
	}
	price, err := decimal.NewFromString(raw.Rate)
	if err != nil {
		price = decimal.Zero
	}

	order := models.Order{
		ID:     id,
		Type:   models.ParseOrderType(raw.Type),
		Amount: utils.Quantize(amount, pair.First.Places),
		Price:  utils.Quantize(price, pair.Second.Places),
	}
	if raw.TimestampCreated > 0 {
		order.Created = time.Unix(raw.TimestampCreated, 0).UTC()
	}
	if raw.Timestamp > 0 {
		order.Completed = time.Unix(raw.Timestamp, 0).UTC()
	}
	return order
}
