// Package config - конфигурация движка из переменных окружения:
// подключение к бирже, список торгуемых пар (TRADING, JSON), общий
// margin биржи (EXCHANGE_MARGIN), порог устаревания ордеров
// (ORDER_OUTDATE_PERIOD) и ambient-настройки (логирование, каталог
// данных). Один Load(),
// вспомогательные getEnv* с значениями по умолчанию, явная
// валидация критичных параметров сразу после загрузки.
package config

import (
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"marketmaker/internal/connector"
	"marketmaker/internal/models"
	"marketmaker/pkg/crypto"
	"marketmaker/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config - вся конфигурация процесса.
type Config struct {
	Connector     connector.Config
	Pairs         []models.TradingOptions
	OutdatePeriod time.Duration
	Logging       LoggingConfig
	API           APIConfig
}

// LoggingConfig - настройки структурированного логирования (pkg/utils.InitLogger).
type LoggingConfig struct {
	Level  string
	Format string
}

// APIConfig - настройки HTTP-поверхности статуса/метрик/health.
type APIConfig struct {
	Port      int
	TokenHash string // bcrypt-хеш токена, которым защищён /status (STATUS_TOKEN_HASH)
}

// tradingEntry - форма одного элемента JSON-массива TRADING.
type tradingEntry struct {
	First          string `json:"first"`
	FirstPlaces    int32  `json:"first_places"`
	Second         string `json:"second"`
	SecondPlaces   int32  `json:"second_places"`
	Margin         string `json:"margin"`
	MarginJitter   string `json:"margin_jitter"`
	MinAmount      string `json:"min_amount"`
	DealAmount     string `json:"deal_amount"`
	PriceJumpValue string `json:"price_jump_value"`
}

// Load загружает и валидирует конфигурацию. Ошибка здесь
// останавливает запуск процесса - частичный/повреждённый конфиг
// не восстановить во время работы.
func Load() (*Config, error) {
	siteURL := getEnv("EXCHANGE_SITE", "")
	apiKey := getEnv("API_KEY", "")
	encryptedSecret := getEnv("API_SECRET", "")
	encryptionKey := getEnv("ENCRYPTION_KEY", "")
	dataDir := getEnv("DATA_DIR", "./data")

	if siteURL == "" {
		return nil, fmt.Errorf("EXCHANGE_SITE is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API_KEY is required")
	}
	if encryptedSecret == "" {
		return nil, fmt.Errorf("API_SECRET is required")
	}
	if len(encryptionKey) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	apiSecret, err := crypto.DecryptWithKeyString(encryptedSecret, encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt API_SECRET: %w", err)
	}

	exchangeMargin, err := decimalEnv("EXCHANGE_MARGIN", decimal.Zero)
	if err != nil {
		return nil, fmt.Errorf("EXCHANGE_MARGIN: %w", err)
	}

	pairs, err := loadTradingPairs(exchangeMargin)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("TRADING must configure at least one pair")
	}
	for _, p := range pairs {
		if err := utils.ValidatePairNames(p.Pair.First.Name, p.Pair.Second.Name); err != nil {
			return nil, fmt.Errorf("pair %s: %w", p.Pair.String(), err)
		}
		if err := utils.ValidateTradingAmounts(p.Margin, p.MarginJitter, p.MinAmount, p.DealAmount, p.PriceJumpValue); err != nil {
			return nil, fmt.Errorf("pair %s: %w", p.Pair.String(), err)
		}
	}

	outdatePeriod := getEnvAsDuration("ORDER_OUTDATE_PERIOD", 35*24*time.Hour)

	cfg := &Config{
		Connector: connector.Config{
			SiteURL:     siteURL,
			APIKey:      apiKey,
			APISecret:   apiSecret,
			DataDir:     dataDir,
			HTTPTimeout: getEnvAsDuration("EXCHANGE_HTTP_TIMEOUT", 10*time.Second),
		},
		Pairs:         pairs,
		OutdatePeriod: outdatePeriod,
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		API: APIConfig{
			Port:      getEnvAsInt("API_PORT", 8080),
			TokenHash: getEnv("STATUS_TOKEN_HASH", ""),
		},
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create DATA_DIR %s: %w", dataDir, err)
	}

	return cfg, nil
}

// loadTradingPairs разбирает TRADING (JSON-массив) и добавляет
// EXCHANGE_MARGIN к margin каждой пары - биржевой margin
// складывается с margin пары при построении, а не хранится отдельно).
func loadTradingPairs(exchangeMargin decimal.Decimal) ([]models.TradingOptions, error) {
	raw := getEnv("TRADING", "")
	if raw == "" {
		return nil, nil
	}

	var entries []tradingEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("parse TRADING: %w", err)
	}

	out := make([]models.TradingOptions, 0, len(entries))
	for i, e := range entries {
		margin, err := decimal.NewFromString(orDefault(e.Margin, "0"))
		if err != nil {
			return nil, fmt.Errorf("TRADING[%d].margin: %w", i, err)
		}
		jitter, err := decimal.NewFromString(orDefault(e.MarginJitter, "0"))
		if err != nil {
			return nil, fmt.Errorf("TRADING[%d].margin_jitter: %w", i, err)
		}
		minAmount, err := decimal.NewFromString(orDefault(e.MinAmount, "0"))
		if err != nil {
			return nil, fmt.Errorf("TRADING[%d].min_amount: %w", i, err)
		}
		dealAmount, err := decimal.NewFromString(orDefault(e.DealAmount, "0"))
		if err != nil {
			return nil, fmt.Errorf("TRADING[%d].deal_amount: %w", i, err)
		}
		jumpValue, err := decimal.NewFromString(orDefault(e.PriceJumpValue, "0"))
		if err != nil {
			return nil, fmt.Errorf("TRADING[%d].price_jump_value: %w", i, err)
		}

		out = append(out, models.TradingOptions{
			Pair: models.CurrencyPair{
				First:  models.Currency{Name: e.First, Places: e.FirstPlaces},
				Second: models.Currency{Name: e.Second, Places: e.SecondPlaces},
			},
			Margin:         margin.Add(exchangeMargin),
			MarginJitter:   jitter,
			MinAmount:      minAmount,
			DealAmount:     dealAmount,
			PriceJumpValue: jumpValue,
		})
	}
	return out, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func decimalEnv(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	return decimal.NewFromString(raw)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var value int
	if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
