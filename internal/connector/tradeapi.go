package connector

// tradeapi.go - аутентифицированный торговый API: подпись запроса,
// нонс, единственный одновременный in-flight запрос. Тело запроса -
// form-encoded, заголовки Key/Sign, подпись HMAC-SHA512(secret, body).

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"marketmaker/internal/connectorerr"
	"marketmaker/internal/metrics"
	"marketmaker/internal/nonce"
	"marketmaker/pkg/ratelimit"
	"marketmaker/pkg/retry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// tradeAPI - аутентифицированный клиент торгового API одной биржи.
// Владеет единственным in-flight слотом и файловым нонсом: все вызовы
// сериализуются, поэтому нонс растёт строго по одному за запрос.
type tradeAPI struct {
	url    string
	key    string
	secret string

	client *http.Client
	slot   *ratelimit.InFlightSlot
	nonces *nonce.Keeper
	logger *zap.Logger
}

func newTradeAPI(cfg Config, client *http.Client, nonces *nonce.Keeper, logger *zap.Logger) *tradeAPI {
	return &tradeAPI{
		url:    strings.TrimRight(cfg.SiteURL, "/") + "/tapi",
		key:    cfg.APIKey,
		secret: cfg.APISecret,
		client: client,
		slot:   ratelimit.NewInFlightSlot(),
		nonces: nonces,
		logger: logger,
	}
}

type tradeResponse struct {
	Success int             `json:"success"`
	Return  jsoniter.RawMessage `json:"return"`
	Error   string          `json:"error"`
}

// call выполняет один торговый запрос без retry - retry оборачивает
// это в Коннекторе, чтобы политика повтора была видна на уровне
// команд, а не скрыта внутри транспорта.
func (t *tradeAPI) call(ctx context.Context, method string, params map[string]string) (jsoniter.RawMessage, error) {
	if err := t.slot.Acquire(ctx); err != nil {
		return nil, connectorerr.Transport(method, err)
	}
	defer t.slot.Release()

	n, err := t.nonces.Next()
	if err != nil {
		// Нонс повреждён или недоступен. Эта ошибка не *connectorerr.Error,
		// поэтому retry.IsRetryable считает её повторяемой: callWithRetry
		// повторяет вызов до 20 раз, затем обработчик команды пишет её в
		// лог и отбрасывает команду; процесс при этом не останавливается.
		return nil, fmt.Errorf("nonce keeper: %w", err)
	}
	metrics.NonceValue.Set(float64(n))

	body := encodeBody(method, n, params)
	sign := sign(t.secret, body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, strings.NewReader(body))
	if err != nil {
		return nil, connectorerr.Transport(method, err)
	}
	req.Header.Set("Key", t.key)
	req.Header.Set("Sign", sign)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, connectorerr.Transport(method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, connectorerr.Transport(method, err)
	}

	var parsed tradeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, connectorerr.Decode(method, err)
	}
	if parsed.Success != 1 {
		return nil, connectorerr.Exchange(method, parsed.Error)
	}
	return parsed.Return, nil
}

// callWithRetry выполняет call под политикой retry.TradeAPIConfig:
// до 20 попыток без задержки, предупреждение каждые 5 неудач.
func (t *tradeAPI) callWithRetry(ctx context.Context, method string, params map[string]string) (jsoniter.RawMessage, error) {
	cfg := retry.TradeAPIConfig(func(attempt int, err error) {
		t.logger.Warn("trade API call still failing",
			zap.String("method", method),
			zap.Int("attempt", attempt),
			zap.Error(err))
	})
	warnEveryFifth := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		metrics.RecordTradeAPIRetry(method)
		warnEveryFifth(attempt, err, delay)
	}
	result, err := retry.DoWithResult(ctx, func() (jsoniter.RawMessage, error) {
		return t.call(ctx, method, params)
	}, cfg)
	if err != nil && retry.IsRetryable(err) {
		metrics.RecordTradeAPIExhausted(method)
	}
	return result, err
}

// sign вычисляет HMAC-SHA512(secret, body) в виде hex-строки.
func sign(secret, body string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

// encodeBody собирает form-encoded тело запроса method=...&nonce=...&k=v...
// Порядок параметров детерминирован (отсортирован по ключу), чтобы
// подпись была воспроизводима в тестах.
func encodeBody(method string, n int64, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("method=")
	b.WriteString(url.QueryEscape(method))
	b.WriteString("&nonce=")
	fmt.Fprintf(&b, "%d", n)
	for _, k := range keys {
		b.WriteByte('&')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}
