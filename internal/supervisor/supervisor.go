// Package supervisor - точка сборки движка: шина, один Connector и
// один Trader на каждую сконфигурированную пару, жизненный цикл от
// старта до внешнего сигнала остановки. Конструктор
// собирает зависимости, Run порождает воркеров и блокируется до
// отмены ctx, после чего останавливает Trader'ы и Connector одновременно
// и дожидается их завершения; подписку Коннектора и обе шины закрывает
// только после этого, так что Trader не шлёт команды в уже закрытую
// шину.
package supervisor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"marketmaker/internal/bus"
	"marketmaker/internal/connector"
	"marketmaker/internal/metrics"
	"marketmaker/internal/models"
	"marketmaker/internal/trader"
	"marketmaker/internal/websocket"
)

const (
	commandBufferSize = 256
	wsBufferSize      = 128
)

// Config - параметры сборки одного движка: подключение к бирже плюс
// список торгуемых пар.
type Config struct {
	Connector     connector.Config
	Pairs         []models.TradingOptions
	OutdatePeriod time.Duration
}

// Supervisor владеет шинами команд/событий, Коннектором и набором
// Trader'ов - по одному на пару.
type Supervisor struct {
	commands *bus.Bus[models.Command]
	events   *bus.Bus[models.Event]

	conn    *connector.Connector
	traders []*trader.Trader
	status  *statusObserver
	hub     *websocket.Hub

	logger *zap.Logger
}

// New собирает Supervisor. Ошибка возвращается, если Коннектор не
// смог инициализироваться (например, файл нонса недоступен) -
// фатально для старта процесса.
func New(cfg Config, logger *zap.Logger) (*Supervisor, error) {
	commands := bus.New[models.Command]("commands", logger)
	events := bus.New[models.Event]("events", logger)
	commands.OnOverflow(func(subName string) { metrics.RecordBusOverflow("commands", subName) })
	events.OnOverflow(func(subName string) { metrics.RecordBusOverflow("events", subName) })

	conn, err := connector.New(cfg.Connector, events, logger)
	if err != nil {
		return nil, err
	}

	traders := make([]*trader.Trader, 0, len(cfg.Pairs))
	for _, opts := range cfg.Pairs {
		traders = append(traders, trader.New(opts, cfg.OutdatePeriod, commands, events, logger))
	}

	return &Supervisor{
		commands: commands,
		events:   events,
		conn:     conn,
		traders:  traders,
		status:   newStatusObserver(cfg.Pairs),
		hub:      websocket.NewHub(logger),
		logger:   logger,
	}, nil
}

// Status возвращает снимок последних известных цен, балансов и
// размеров очередей ордеров по каждой торгуемой паре.
func (s *Supervisor) Status() Status {
	return s.status.snapshot()
}

// Hub возвращает WebSocket-хаб движка, используемый маршрутом /ws/stream
// для трансляции событий шины подключенным клиентам.
func (s *Supervisor) Hub() *websocket.Hub {
	return s.hub
}

// Run запускает Коннектор и все Trader'ы, блокируется до отмены ctx,
// затем отменяет общий для всех воркеров контекст, ждёт завершения
// Trader'ов и Коннектора, после чего закрывает подписку Коннектора,
// HTTP-соединения и обе шины.
func (s *Supervisor) Run(ctx context.Context) {
	connSub := s.commands.Subscribe("connector", commandBufferSize)
	statusSub := s.events.Subscribe("status", statusBufferSize)
	wsSub := s.events.Subscribe("ws", wsBufferSize)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.conn.Run(runCtx, connSub)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range statusSub.C() {
			s.status.apply(e)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.hub.Run(runCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range wsSub.C() {
			s.hub.BroadcastEvent(e)
		}
	}()

	for _, tr := range s.traders {
		wg.Add(1)
		go func(tr *trader.Trader) {
			defer wg.Done()
			tr.Run(runCtx)
		}(tr)
	}

	<-ctx.Done()
	s.logger.Info("supervisor stopping")

	cancel()
	statusSub.Close()
	wsSub.Close()
	wg.Wait()

	connSub.Close()
	s.conn.Close()
	s.commands.Close()
	s.events.Close()
}
