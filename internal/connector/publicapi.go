package connector

// publicapi.go - неаутентифицированный тикер биржи. Не проходит через
// in-flight слот торгового API: публичные запросы могут выполняться
// параллельно.

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketmaker/internal/connectorerr"
	"marketmaker/pkg/ratelimit"
	"marketmaker/pkg/retry"
)

// publicTickerRate и publicTickerBurst ограничивают частоту запросов к
// публичному тикеру биржи независимо от количества торгуемых пар - все
// пары одного процесса делят один лимит, так же как делят один HTTP
// клиент.
const (
	publicTickerRate  = 10
	publicTickerBurst = 20
)

type publicAPI struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
	limiter *ratelimit.RateLimiter
}

func newPublicAPI(cfg Config, client *http.Client, logger *zap.Logger) *publicAPI {
	return &publicAPI{
		baseURL: strings.TrimRight(cfg.SiteURL, "/") + "/api/3",
		client:  client,
		logger:  logger,
		limiter: ratelimit.NewRateLimiter(publicTickerRate, publicTickerBurst),
	}
}

type tickerEntry struct {
	Last string `json:"last"`
}

// ticker запрашивает GET {SITE}/api/3/ticker/{pair} и возвращает
// последнюю цену без квантования - квантование к places пары делает
// вызывающий, которому известна пара. Транзиентные сбои (таймаут,
// разрыв соединения) и отсутствие пары в ответе (KindExchange)
// повторяются с экспоненциальным backoff; ошибки декодирования - нет.
func (p *publicAPI) ticker(ctx context.Context, wirePair string) (decimal.Decimal, error) {
	cfg := retry.PublicAPIConfig(func(attempt int, err error) {
		p.logger.Warn("public ticker call still failing",
			zap.String("pair", wirePair),
			zap.Int("attempt", attempt),
			zap.Error(err))
	})
	return retry.DoWithResult(ctx, func() (decimal.Decimal, error) {
		return p.fetchTicker(ctx, wirePair)
	}, cfg)
}

func (p *publicAPI) fetchTicker(ctx context.Context, wirePair string) (decimal.Decimal, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}

	url := fmt.Sprintf("%s/ticker/%s", p.baseURL, wirePair)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, connectorerr.Transport("ticker", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return decimal.Zero, connectorerr.Transport("ticker", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, connectorerr.Transport("ticker", err)
	}

	var parsed map[string]tickerEntry
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return decimal.Zero, connectorerr.Decode("ticker", err)
	}
	entry, ok := parsed[wirePair]
	if !ok {
		return decimal.Zero, connectorerr.Exchange("ticker", "pair missing from response")
	}

	last, err := decimal.NewFromString(entry.Last)
	if err != nil {
		return decimal.Zero, connectorerr.Decode("ticker", err)
	}
	return last, nil
}
