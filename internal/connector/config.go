package connector

import "time"

// Config - параметры подключения Коннектора к бирже. Собирается
// internal/config из переменных окружения и передаётся в New как
// единое неизменяемое значение.
type Config struct {
	SiteURL string // базовый URL биржи, напр. "https://btc-e.com"
	APIKey  string
	APISecret string
	DataDir string // каталог для data/nonce

	// HTTPTimeout - таймаут одного HTTP-запроса (публичного или
	// торгового). Не путать с суммарным временем retry-цикла.
	HTTPTimeout time.Duration
}
