// Package metrics - prometheus-метрики движка: переполнения
// шины событий/команд, повторные попытки торгового API, команды и
// события по парам (package-level
// promauto-переменные, namespace/subsystem, Record*/Update*
// вспомогательные функции), перенаправленную на компоненты шины вместо
// арбитражного ядра.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============ Шина событий/команд ============

// BusOverflows - число вытесненных значений на переполненной подписке
// (bus.Bus.OnOverflow).
var BusOverflows = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "marketmaker",
		Subsystem: "bus",
		Name:      "overflows_total",
		Help:      "Number of values dropped because a subscription's buffer was full",
	},
	[]string{"bus", "subscription"},
)

// ============ Коннектор ============

// TradeAPIRetries - число повторных попыток торгового API по методам.
var TradeAPIRetries = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "marketmaker",
		Subsystem: "connector",
		Name:      "trade_api_retries_total",
		Help:      "Number of trade API retry attempts by method",
	},
	[]string{"method"},
)

// TradeAPIExhausted - число запросов, исчерпавших все попытки retry и
// отброшенных без результата.
var TradeAPIExhausted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "marketmaker",
		Subsystem: "connector",
		Name:      "trade_api_exhausted_total",
		Help:      "Number of trade API calls that exhausted all retries",
	},
	[]string{"method"},
)

// NonceValue - текущее значение нонса (монотонно растёт, полезно для
// обнаружения рассинхронизации с файлом на диске).
var NonceValue = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "marketmaker",
		Subsystem: "connector",
		Name:      "nonce_value",
		Help:      "Current nonce value used for trade API requests",
	},
)

// ============ Trader ============

// CommandsEmitted - команды, отправленные Trader'ом на шину, по парам
// и видам.
var CommandsEmitted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "marketmaker",
		Subsystem: "trader",
		Name:      "commands_emitted_total",
		Help:      "Total number of commands emitted by a trader, by pair and kind",
	},
	[]string{"pair", "kind"},
)

// EventsConsumed - события, обработанные Trader'ом, по парам и видам.
var EventsConsumed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "marketmaker",
		Subsystem: "trader",
		Name:      "events_consumed_total",
		Help:      "Total number of events consumed by a trader, by pair and kind",
	},
	[]string{"pair", "kind"},
)

// RecordBusOverflow записывает вытеснение значения на подписке bus.
func RecordBusOverflow(busName, subscription string) {
	BusOverflows.WithLabelValues(busName, subscription).Inc()
}

// RecordTradeAPIRetry записывает одну повторную попытку торгового API.
func RecordTradeAPIRetry(method string) {
	TradeAPIRetries.WithLabelValues(method).Inc()
}

// RecordTradeAPIExhausted записывает исчерпание попыток retry.
func RecordTradeAPIExhausted(method string) {
	TradeAPIExhausted.WithLabelValues(method).Inc()
}

// RecordCommandEmitted записывает отправку команды Trader'ом.
func RecordCommandEmitted(pair, kind string) {
	CommandsEmitted.WithLabelValues(pair, kind).Inc()
}

// RecordEventConsumed записывает потребление события Trader'ом.
func RecordEventConsumed(pair, kind string) {
	EventsConsumed.WithLabelValues(pair, kind).Inc()
}
