package bus

import (
	"context"
	"testing"
	"time"
)

func collect[T any](ch <-chan T, n int, timeout time.Duration) []T {
	out := make([]T, 0, n)
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case v, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, v)
		case <-deadline:
			return out
		}
	}
	return out
}

func TestFilter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan int, 5)
	for _, v := range []int{1, 2, 3, 4, 5, 6} {
		in <- v
	}
	close(in)

	out := Filter(ctx, in, func(v int) bool { return v%2 == 0 })
	got := collect(out, 3, time.Second)
	want := []int{2, 4, 6}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestMap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan int, 3)
	in <- 1
	in <- 2
	in <- 3
	close(in)

	out := Map(ctx, in, func(v int) string {
		if v == 1 {
			return "one"
		}
		return "n"
	})
	got := collect(out, 3, time.Second)
	if got[0] != "one" {
		t.Fatalf("got %v", got)
	}
}

func TestScan(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan int, 3)
	in <- 1
	in <- 2
	in <- 3
	close(in)

	out := Scan(ctx, in, 0, func(acc, v int) int { return acc + v })
	got := collect(out, 3, time.Second)
	want := []int{1, 3, 6}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestDistinctUntilChanged(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan int, 6)
	for _, v := range []int{1, 1, 2, 2, 2, 3} {
		in <- v
	}
	close(in)

	out := DistinctUntilChanged(ctx, in, func(a, b int) bool { return a == b })
	got := collect(out, 3, time.Second)
	want := []int{1, 2, 3}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSkip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan int, 5)
	for _, v := range []int{1, 2, 3, 4, 5} {
		in <- v
	}
	close(in)

	out := Skip(ctx, in, 2)
	got := collect(out, 3, time.Second)
	want := []int{3, 4, 5}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestCombineLatest2(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := make(chan int)
	b := make(chan string)
	out := CombineLatest2(ctx, a, b, func(x int, y string) string {
		return y
	})

	go func() {
		a <- 1
		b <- "x"
		a <- 2
		close(a)
		close(b)
	}()

	got := collect(out, 2, time.Second)
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 values (one per input after both primed)", got)
	}
}

func TestTimerImmediate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := Timer(ctx, time.Hour, true)
	select {
	case <-out:
	case <-time.After(time.Second):
		t.Fatal("expected immediate tick")
	}
}
