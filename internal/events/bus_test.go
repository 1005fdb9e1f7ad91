package events

import (
	"strconv"
	"testing"
	"time"
)

func TestEmitPreservesOrder(t *testing.T) {
	b := NewBus(16)
	ch, cancel := b.Subscribe("backend-stdout")
	defer cancel()
	for i := 0; i < 10; i++ {
		if !b.Emit("backend-stdout", strconv.Itoa(i)) {
			t.Fatalf("emit %d dropped", i)
		}
	}
	for i := 0; i < 10; i++ {
		evt := <-ch
		if evt.Payload != strconv.Itoa(i) || evt.Channel != "backend-stdout" {
			t.Fatalf("event %d out of order: %+v", i, evt)
		}
	}
}

func TestEmitOnlyReachesNamedChannel(t *testing.T) {
	b := NewBus(4)
	out, cancelOut := b.Subscribe("backend-stdout")
	defer cancelOut()
	errCh, cancelErr := b.Subscribe("backend-stderr")
	defer cancelErr()

	b.Emit("backend-stderr", "oops")
	select {
	case evt := <-errCh:
		if evt.Payload != "oops" {
			t.Fatalf("unexpected payload %q", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("stderr subscriber got nothing")
	}
	select {
	case evt := <-out:
		t.Fatalf("stdout subscriber got %+v", evt)
	default:
	}
}

func TestEmitDropsWhenFullWithoutBlocking(t *testing.T) {
	b := NewBus(2)
	_, cancel := b.Subscribe("c")
	defer cancel()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			b.Emit("c", "x")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full subscriber")
	}
	if got := b.Dropped("c"); got != 3 {
		t.Fatalf("dropped = %d, want 3", got)
	}
}

func TestCancelClosesChannel(t *testing.T) {
	b := NewBus(1)
	ch, cancel := b.Subscribe("c")
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after cancel")
	}
	if !b.Emit("c", "nobody") {
		t.Fatal("emit with no subscribers should succeed")
	}
}

func TestCloseEndsSubscribers(t *testing.T) {
	b := NewBus(1)
	ch, cancel := b.Subscribe("c")
	b.Close()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after Close")
	}
	if b.Emit("c", "late") {
		t.Fatal("emit after Close should report false")
	}
	late, _ := b.Subscribe("c")
	if _, ok := <-late; ok {
		t.Fatal("subscribe after Close should return a closed channel")
	}
}
