package bus

import (
	"testing"
	"time"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	b := New[int]("test", nil)
	s1 := b.Subscribe("s1", 4)
	s2 := b.Subscribe("s2", 4)

	b.Publish(1)
	b.Publish(2)

	for _, s := range []*Subscription[int]{s1, s2} {
		if v := <-s.C(); v != 1 {
			t.Fatalf("got %d, want 1", v)
		}
		if v := <-s.C(); v != 2 {
			t.Fatalf("got %d, want 2", v)
		}
	}
}

func TestPublishDropsOldestOnOverflow(t *testing.T) {
	overflowed := make(chan string, 10)
	b := New[int]("test", nil)
	b.OnOverflow(func(name string) { overflowed <- name })
	sub := b.Subscribe("slow", 2)

	b.Publish(1)
	b.Publish(2)
	b.Publish(3) // buffer full at 1,2 -> drop 1, push 3 -> {2,3}

	select {
	case name := <-overflowed:
		if name != "slow" {
			t.Fatalf("overflow callback name = %q, want slow", name)
		}
	case <-time.After(time.Second):
		t.Fatal("expected overflow callback")
	}

	if v := <-sub.C(); v != 2 {
		t.Fatalf("got %d, want 2 (oldest should have been dropped)", v)
	}
	if v := <-sub.C(); v != 3 {
		t.Fatalf("got %d, want 3", v)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New[int]("test", nil)
	sub := b.Subscribe("s", 1)
	sub.Close()

	b.Publish(1) // must not panic, subscriber is gone

	if _, ok := <-sub.C(); ok {
		t.Fatal("channel should be closed after Close")
	}
}

func TestBusCloseClosesAllSubscriptions(t *testing.T) {
	b := New[int]("test", nil)
	s1 := b.Subscribe("s1", 1)
	s2 := b.Subscribe("s2", 1)

	b.Close()

	if _, ok := <-s1.C(); ok {
		t.Fatal("s1 should be closed")
	}
	if _, ok := <-s2.C(); ok {
		t.Fatal("s2 should be closed")
	}

	// subscribing after close should return an already-closed channel
	s3 := b.Subscribe("s3", 1)
	if _, ok := <-s3.C(); ok {
		t.Fatal("subscription after Close should be pre-closed")
	}
}
