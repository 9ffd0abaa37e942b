// Package bus - шина событий движка: типобезопасный pub/sub поверх
// generic-каналов, плюс набор реактивных комбинаторов (filter, map,
// scan, ...) для построения производных потоков над подписками.
//
// Переполнение подписки не блокирует публикующую сторону: самое старое
// значение в очереди отбрасывается, публикуется новое, счётчик
// переполнений растёт и пишется предупреждение в лог - тот же приём,
// что и в internal/bot/channel_helpers.go (tryEnqueueNotification), но
// обобщённый на произвольный тип T и с вытеснением вместо отказа.
package bus

import (
	"sync"

	"go.uber.org/zap"
)

// Bus - шина для значений одного типа T. Публикация рассылается всем
// текущим подписчикам; каждая подписка имеет собственную ограниченную
// очередь и не может замедлить остальных.
type Bus[T any] struct {
	name   string
	logger *zap.Logger

	mu      sync.Mutex
	nextID  uint64
	subs    map[uint64]*Subscription[T]
	closed  bool
	overflowFn func(subName string)
}

// New создаёт шину с именем name (используется только для логов/меток
// метрик, чтобы отличать "price" от "orders" и т.п. в логах).
func New[T any](name string, logger *zap.Logger) *Bus[T] {
	return &Bus[T]{
		name:   name,
		logger: logger,
		subs:   make(map[uint64]*Subscription[T]),
	}
}

// OnOverflow регистрирует callback, вызываемый при вытеснении значения
// из очереди подписки (для internal/metrics - инкремент счётчика).
func (b *Bus[T]) OnOverflow(fn func(subName string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overflowFn = fn
}

// Subscription - один получатель публикаций шины с собственным буфером.
type Subscription[T any] struct {
	id     uint64
	name   string
	ch     chan T
	bus    *Bus[T]
}

// C возвращает канал для чтения значений. Закрывается при Close шины
// или самой подписки.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Close отписывает получателя от шины и закрывает его канал.
func (s *Subscription[T]) Close() {
	s.bus.unsubscribe(s.id)
}

// Subscribe создаёт новую подписку с буфером bufferSize. name служит
// только для диагностики (логи переполнения, метки метрик).
func (b *Bus[T]) Subscribe(name string, bufferSize int) *Subscription[T] {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	sub := &Subscription[T]{
		id:   id,
		name: name,
		ch:   make(chan T, bufferSize),
		bus:  b,
	}
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[id] = sub
	return sub
}

func (b *Bus[T]) unsubscribe(id uint64) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok {
		close(sub.ch)
	}
}

// Publish рассылает value всем живым подпискам. Неблокирующая: если
// очередь подписки заполнена, самое старое значение отбрасывается,
// чтобы освободить место для нового - медленный подписчик получает
// "устаревшее" состояние, но никогда не тормозит остальных.
func (b *Bus[T]) Publish(value T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		select {
		case sub.ch <- value:
			continue
		default:
		}

		// буфер полон: вытесняем самое старое значение и пробуем снова
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- value:
		default:
			// подписчик читает в этот же момент из другой горутины -
			// пропускаем публикацию, а не блокируемся
		}

		if b.logger != nil {
			b.logger.Warn("bus subscription overflow, dropped oldest value",
				zap.String("bus", b.name),
				zap.String("subscription", sub.name))
		}
		if b.overflowFn != nil {
			b.overflowFn(sub.name)
		}
	}
}

// Close закрывает шину и все текущие подписки. Публикация после Close
// не паникует, а молча игнорируется.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
