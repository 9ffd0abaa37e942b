// Package api - HTTP-поверхность движка: health-проверка, экспорт
// Prometheus-метрик и защищённый bearer-токеном снимок состояния
// торгуемых пар. Маршрутизация и порядок middleware (recovery →
// logging → cors) сохранены из исходного routes.go; набор маршрутов
// сведён от CRUD-панели арбитражного бота к ambient-эндпоинтам движка
// (см. SetupRoutes).
package api

import (
	"encoding/json"
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketmaker/internal/api/middleware"
	"marketmaker/internal/supervisor"
	"marketmaker/internal/websocket"
)

// StatusProvider - источник снимка состояния и WebSocket-хаба движка.
// Реализуется *supervisor.Supervisor; интерфейс существует, чтобы
// routes.go не зависел от внутренностей Supervisor сверх этих двух
// методов.
type StatusProvider interface {
	Status() supervisor.Status
	Hub() *websocket.Hub
}

// SetupRoutes настраивает HTTP-маршруты движка:
//
//	GET /healthz    - живость процесса, без аутентификации
//	GET /metrics    - экспорт Prometheus-метрик
//	GET /status     - снимок цен/балансов/очередей ордеров по парам,
//	                  защищён middleware.Auth (bearer-токен, bcrypt)
//	GET /ws/stream  - live-трансляция событий шины, защищена тем же
//	                  middleware.Auth
//	/debug/pprof/*  - профилировщик рантайма, защищён middleware.DebugAuth
func SetupRoutes(provider StatusProvider) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	status := router.PathPrefix("/status").Subrouter()
	status.Use(middleware.Auth)
	status.HandleFunc("", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(provider.Status()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}).Methods("GET")

	stream := router.PathPrefix("/ws/stream").Subrouter()
	stream.Use(middleware.Auth)
	stream.HandleFunc("", func(w http.ResponseWriter, r *http.Request) {
		websocket.ServeWS(provider.Hub(), w, r)
	}).Methods("GET")

	debug := router.PathPrefix("/debug/pprof").Subrouter()
	debug.Use(middleware.DebugAuth)
	debug.HandleFunc("", pprof.Index)
	debug.HandleFunc("/cmdline", pprof.Cmdline)
	debug.HandleFunc("/profile", pprof.Profile)
	debug.HandleFunc("/symbol", pprof.Symbol)
	debug.HandleFunc("/trace", pprof.Trace)
	debug.PathPrefix("/").HandlerFunc(pprof.Index)

	return router
}
