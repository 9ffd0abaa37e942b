// Package connector - единственный экземпляр, переводящий команды
// Trader'ов в вызовы биржевого API и ответы биржи обратно в события.
// Владеет retry-очередью и файловым нонсом.
package connector

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"marketmaker/internal/bus"
	"marketmaker/internal/exchange"
	"marketmaker/internal/models"
	"marketmaker/internal/nonce"
	"marketmaker/pkg/utils"
)

// Connector подписывается на шину команд и публикует события в шину
// событий. Один экземпляр обслуживает все сконфигурированные пары.
type Connector struct {
	public *publicAPI
	trade  *tradeAPI

	events *bus.Bus[models.Event]
	logger *zap.Logger

	httpClient *exchange.HTTPClient
}

// New строит Коннектор. cfg.DataDir должен существовать; ошибка при
// инициализации файла нонса - фатальная.
func New(cfg Config, events *bus.Bus[models.Event], logger *zap.Logger) (*Connector, error) {
	keeper, err := nonce.NewKeeper(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	httpCfg := exchange.DefaultHTTPClientConfig()
	if cfg.HTTPTimeout > 0 {
		httpCfg.TotalTimeout = cfg.HTTPTimeout
	}
	httpClient := exchange.NewHTTPClient(httpCfg)

	return &Connector{
		public:     newPublicAPI(cfg, httpClient.GetClient(), logger),
		trade:      newTradeAPI(cfg, httpClient.GetClient(), keeper, logger),
		events:     events,
		logger:     logger,
		httpClient: httpClient,
	}, nil
}

// Close освобождает HTTP-соединения. Вызывается Supervisor'ом при
// остановке.
func (c *Connector) Close() {
	c.httpClient.Close()
}

// Run читает команды из sub, пока не закроется канал или не отменится
// ctx, и обрабатывает каждую последовательно в этой же горутине -
// Коннектор является единственным сериализующим воркером для торгового
// API.
func (c *Connector) Run(ctx context.Context, sub *bus.Subscription[models.Command]) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-sub.C():
			if !ok {
				return
			}
			c.handle(ctx, cmd)
		}
	}
}

func (c *Connector) handle(ctx context.Context, cmd models.Command) {
	switch cmd.Kind {
	case models.GetServerTime:
		c.handleServerTime()
	case models.GetPrice:
		c.handlePrice(ctx, cmd.Pair)
	case models.GetBalance:
		c.handleBalance(ctx, cmd.Currency)
	case models.GetActiveOrders:
		c.handleActiveOrders(ctx, cmd.Pair)
	case models.GetCompletedOrders:
		c.handleCompletedOrders(ctx, cmd.Pair)
	case models.CreateSellOrder:
		c.handleCreateOrder(ctx, cmd.Pair, models.Sell, cmd.Amount, cmd.Price)
	case models.CreateBuyOrder:
		c.handleCreateOrder(ctx, cmd.Pair, models.Buy, cmd.Amount, cmd.Price)
	case models.CancelOrder:
		c.handleCancelOrder(ctx, cmd.OrderID)
	}
}

// wirePair кодирует пару для запроса биржи: "<first>_<second>" в
// нижнем регистре.
func wirePair(pair models.CurrencyPair) string {
	return strings.ToLower(pair.First.Name) + "_" + strings.ToLower(pair.Second.Name)
}

func (c *Connector) handleServerTime() {
	c.events.Publish(models.Event{Kind: models.Time, At: time.Now().UTC()})
}

func (c *Connector) handlePrice(ctx context.Context, pair models.CurrencyPair) {
	last, err := c.public.ticker(ctx, wirePair(pair))
	if err != nil {
		c.logger.Warn("cannot get price", zap.String("pair", pair.String()), zap.Error(err))
		return
	}
	c.events.Publish(models.Event{
		Kind:  models.Price,
		Pair:  pair,
		Value: utils.Quantize(last, pair.Second.Places),
	})
}

func (c *Connector) handleBalance(ctx context.Context, currency models.Currency) {
	raw, err := c.trade.callWithRetry(ctx, "getInfo", nil)
	if err != nil {
		c.logger.Warn("cannot get balance", zap.String("currency", currency.Name), zap.Error(err))
		return
	}
	funds, err := decodeFunds(raw)
	if err != nil {
		c.logger.Warn("cannot decode funds", zap.Error(err))
		return
	}
	amount, ok := funds[strings.ToLower(currency.Name)]
	if !ok {
		return
	}
	c.events.Publish(models.Event{
		Kind:     models.Balance,
		Currency: currency,
		Value:    utils.Quantize(amount, currency.Places),
	})
}

func (c *Connector) handleActiveOrders(ctx context.Context, pair models.CurrencyPair) {
	raw, err := c.trade.callWithRetry(ctx, "ActiveOrders", map[string]string{"pair": wirePair(pair)})
	if err != nil {
		if isEmptyResult(err) {
			c.events.Publish(models.Event{Kind: models.ActiveOrders, Pair: pair, Orders: []models.Order{}})
			return
		}
		c.logger.Warn("cannot get active orders", zap.String("pair", pair.String()), zap.Error(err))
		return
	}

	orders, err := decodeOrders(raw, pair, wirePair(pair))
	if err != nil {
		c.logger.Warn("cannot decode active orders", zap.Error(err))
		return
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].Price.LessThan(orders[j].Price) })
	c.events.Publish(models.Event{Kind: models.ActiveOrders, Pair: pair, Orders: orders})
}

func (c *Connector) handleCompletedOrders(ctx context.Context, pair models.CurrencyPair) {
	raw, err := c.trade.callWithRetry(ctx, "TradeHistory", map[string]string{
		"pair":  wirePair(pair),
		"count": "20",
	})
	if err != nil {
		if isEmptyResult(err) {
			c.events.Publish(models.Event{Kind: models.CompletedOrders, Pair: pair, Orders: []models.Order{}})
			return
		}
		c.logger.Warn("cannot get completed orders", zap.String("pair", pair.String()), zap.Error(err))
		return
	}

	orders, err := decodeOrders(raw, pair, wirePair(pair))
	if err != nil {
		c.logger.Warn("cannot decode completed orders", zap.Error(err))
		return
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].Completed.After(orders[j].Completed) })
	c.events.Publish(models.Event{Kind: models.CompletedOrders, Pair: pair, Orders: orders})
}

func (c *Connector) handleCreateOrder(ctx context.Context, pair models.CurrencyPair, orderType models.OrderType, amount, price decimal.Decimal) {
	raw, err := c.trade.callWithRetry(ctx, "Trade", map[string]string{
		"pair":   wirePair(pair),
		"type":   orderType.String(),
		"rate":   price.String(),
		"amount": amount.String(),
	})
	if err != nil {
		c.logger.Debug("cannot create order", zap.String("pair", pair.String()), zap.Error(err))
		return
	}
	c.publishFunds(raw, pair)
}

func (c *Connector) handleCancelOrder(ctx context.Context, orderID string) {
	raw, err := c.trade.callWithRetry(ctx, "CancelOrder", map[string]string{"order_id": orderID})
	if err != nil {
		c.logger.Debug("cannot cancel order", zap.String("order_id", orderID), zap.Error(err))
		return
	}
	c.publishFunds(raw, models.CurrencyPair{})
}

// publishFunds публикует Balance для каждой валюты, присутствующей в
// funds ответа Trade/CancelOrder.
// pair используется только чтобы подобрать places, если валюта входит
// в текущую пару; иначе квантование не применяется (places=0 - биржа и
// так возвращает значение нужной точности).
func (c *Connector) publishFunds(raw jsoniter.RawMessage, pair models.CurrencyPair) {
	funds, err := decodeFundsFromReturn(raw)
	if err != nil {
		c.logger.Warn("cannot decode funds from order response", zap.Error(err))
		return
	}
	for name, amount := range funds {
		currency := models.Currency{Name: name}
		value := amount
		if strings.EqualFold(name, pair.First.Name) {
			currency = pair.First
			value = utils.Quantize(amount, currency.Places)
		} else if strings.EqualFold(name, pair.Second.Name) {
			currency = pair.Second
			value = utils.Quantize(amount, currency.Places)
		}
		c.events.Publish(models.Event{
			Kind:     models.Balance,
			Currency: currency,
			Value:    value,
		})
	}
}
