package bus

import (
	"context"
	"time"
)

// Комбинаторы ниже - тонкие генераторы горутин: каждый читает из
// входного канала (или от таймера) и пишет в новый выходной, который
// закрывается, когда закрывается вход или отменяется ctx. Они не
// владеют входным каналом и не закрывают его.

// Filter пропускает только значения, для которых pred возвращает true.
func Filter[T any](ctx context.Context, in <-chan T, pred func(T) bool) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				if !pred(v) {
					continue
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Map применяет f к каждому значению входного потока.
func Map[T, U any](ctx context.Context, in <-chan T, f func(T) U) <-chan U {
	out := make(chan U)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- f(v):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Scan сворачивает поток в поток накапливаемых состояний: на каждое
// входное значение публикует f(accumulator, value) и запоминает это как
// новый accumulator. seed публикуется не сразу, а служит только
// начальной точкой свёртки.
func Scan[T, A any](ctx context.Context, in <-chan T, seed A, f func(A, T) A) <-chan A {
	out := make(chan A)
	go func() {
		defer close(out)
		acc := seed
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				acc = f(acc, v)
				select {
				case out <- acc:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// DistinctUntilChanged подавляет последовательные дубликаты по equal.
// Первое значение из входа всегда проходит.
func DistinctUntilChanged[T any](ctx context.Context, in <-chan T, equal func(a, b T) bool) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		var prev T
		have := false
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				if have && equal(prev, v) {
					continue
				}
				prev = v
				have = true
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Skip отбрасывает первые n значений входного потока, дальше пропускает
// всё без изменений.
func Skip[T any](ctx context.Context, in <-chan T, n int) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		skipped := 0
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				if skipped < n {
					skipped++
					continue
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// ThrottleFirst пропускает первое значение, затем игнорирует всё
// остальное в течение d, после чего следующее пришедшее значение снова
// пропускается и окно повторяется. Используется для логирования "не
// чаще чем раз в d", а не для управления торговыми решениями.
func ThrottleFirst[T any](ctx context.Context, in <-chan T, d time.Duration) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		var windowEnd time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				now := time.Now()
				if !windowEnd.IsZero() && now.Before(windowEnd) {
					continue
				}
				windowEnd = now.Add(d)
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Timer публикует текущее время немедленно (если immediate=true), а
// затем каждые d, пока ctx не отменён. Закрывает выходной канал при
// отмене ctx - нет отдельного Stop, останов происходит через ctx.
func Timer(ctx context.Context, d time.Duration, immediate bool) <-chan time.Time {
	out := make(chan time.Time)
	go func() {
		defer close(out)
		if immediate {
			select {
			case out <- time.Now():
			case <-ctx.Done():
				return
			}
		}
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				select {
				case out <- t:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// FlattenSlice разворачивает поток срезов в поток их элементов, каждый
// элемент публикуется отдельным значением в порядке среза.
func FlattenSlice[T any](ctx context.Context, in <-chan []T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case vs, ok := <-in:
				if !ok {
					return
				}
				for _, v := range vs {
					select {
					case out <- v:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out
}

// CombineLatest2 публикует combine(a, b) всякий раз, когда приходит
// новое значение по любому из входов, при условии что по обоим входам
// уже было получено хотя бы одно значение. Закрывается, когда
// закрываются оба входа (или раньше по ctx).
func CombineLatest2[A, B, R any](ctx context.Context, inA <-chan A, inB <-chan B, combine func(A, B) R) <-chan R {
	out := make(chan R)
	go func() {
		defer close(out)
		var lastA A
		var lastB B
		haveA, haveB := false, false
		a, b := inA, inB
		for a != nil || b != nil {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-a:
				if !ok {
					a = nil
					continue
				}
				lastA = v
				haveA = true
			case v, ok := <-b:
				if !ok {
					b = nil
					continue
				}
				lastB = v
				haveB = true
			}
			if haveA && haveB {
				select {
				case out <- combine(lastA, lastB):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// SwitchMap проецирует каждое входное значение во внутренний поток
// через f, переключаясь на новый внутренний поток при приходе
// очередного входного значения: предыдущий внутренний поток
// отбрасывается (его горутина должна сама завершиться по переданному
// ей ctx - SwitchMap порождает для неё дочерний context и отменяет его
// при переключении).
func SwitchMap[T, U any](ctx context.Context, in <-chan T, f func(context.Context, T) <-chan U) <-chan U {
	out := make(chan U)
	go func() {
		defer close(out)
		var innerCancel context.CancelFunc
		defer func() {
			if innerCancel != nil {
				innerCancel()
			}
		}()

		var inner <-chan U
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					in = nil
					if inner == nil {
						return
					}
					continue
				}
				if innerCancel != nil {
					innerCancel()
				}
				var innerCtx context.Context
				innerCtx, innerCancel = context.WithCancel(ctx)
				inner = f(innerCtx, v)
			case v, ok := <-inner:
				if !ok {
					inner = nil
					if in == nil {
						return
					}
					continue
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
