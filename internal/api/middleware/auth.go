package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"marketmaker/pkg/crypto"
)

// logger - используется Recovery и Logging. По умолчанию no-op, пока
// cmd/server/main.go не вызовет SetLogger после инициализации zap.
var logger = zap.NewNop()

// SetLogger задаёт логгер для middleware-пакета. Вызывается один раз
// из cmd/server/main.go после utils.InitLogger.
func SetLogger(l *zap.Logger) {
	logger = l
}

// debugUsername и debugPassword для защиты debug endpoints.
// Загружаются из переменных окружения DEBUG_USERNAME и DEBUG_PASSWORD.
// Если не установлены, debug endpoints будут недоступны в production.
var (
	debugUsername = os.Getenv("DEBUG_USERNAME")
	debugPassword = os.Getenv("DEBUG_PASSWORD")
)

// DebugAuth - middleware для защиты debug/pprof endpoints
//
// Назначение:
// Защищает debug endpoints (/debug/pprof/*, /debug/runtime) от неавторизованного доступа.
// Использует HTTP Basic Authentication для простоты.
//
// Конфигурация:
// - DEBUG_USERNAME: имя пользователя для доступа к debug endpoints
// - DEBUG_PASSWORD: пароль для доступа к debug endpoints
// - Если переменные не установлены: при ENV="" или ENV="development"
//   доступ открыт без проверки, иначе запрещен (403)
//
// Безопасность:
// - Использует constant-time сравнение для предотвращения timing attacks
// - В production ОБЯЗАТЕЛЬНО установить DEBUG_USERNAME и DEBUG_PASSWORD
// - Рекомендуется использовать сложные пароли
//
// Использование:
//
//	debug := router.PathPrefix("/debug").Subrouter()
//	debug.Use(middleware.DebugAuth)
func DebugAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Если credentials не настроены, запрещаем доступ в production
		if debugUsername == "" || debugPassword == "" {
			// В development (если явно не настроено) разрешаем доступ
			if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Debug endpoints disabled. Set DEBUG_USERNAME and DEBUG_PASSWORD.", http.StatusForbidden)
			return
		}

		// Получаем credentials из запроса
		user, pass, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// Constant-time сравнение для предотвращения timing attacks
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(debugUsername)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(debugPassword)) == 1

		if !userMatch || !passMatch {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusTokenHash - bcrypt-хеш токена, которым защищён /status
// (config.APIConfig.TokenHash, STATUS_TOKEN_HASH). Устанавливается
// один раз при старте процесса через SetStatusTokenHash; пустая
// строка означает, что /status недоступен ни одному токену.
var statusTokenHash string

// SetStatusTokenHash задаёт хеш, против которого Auth сверяет
// заголовок Authorization: Bearer <token>. Вызывается один раз из
// cmd/server/main.go после загрузки конфигурации.
func SetStatusTokenHash(hash string) {
	statusTokenHash = hash
}

// Auth - middleware для аутентификации /status. Сравнивает токен из
// заголовка Authorization: Bearer <token> с statusTokenHash через
// bcrypt, чтобы сравнение не зависело от длины токена по времени.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if statusTokenHash == "" {
			http.Error(w, "status endpoint disabled: STATUS_TOKEN_HASH not configured", http.StatusForbidden)
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || !crypto.CheckPasswordMatch(token, statusTokenHash) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="status"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
