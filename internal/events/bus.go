// Package events delivers named UI events (one text payload each) to
// subscribers. Emit never blocks: when a subscriber's buffer is full the
// event is dropped for that subscriber and counted.
package events

import (
	"sync"

	"github.com/libershare/launcher/internal/metrics"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 256

// Event is a single payload published on a named channel.
type Event struct {
	Channel string
	Payload string
}

type subscriber struct {
	ch      chan Event
	dropped uint64
}

// Bus fans events out to per-channel subscribers.
type Bus struct {
	buffer int

	mu     sync.Mutex
	subs   map[string][]*subscriber
	closed bool
}

// NewBus returns a bus whose subscribers get channels of the given size.
// A size below one uses DefaultBuffer.
func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	return &Bus{buffer: buffer, subs: make(map[string][]*subscriber)}
}

// Subscribe returns a channel receiving every event emitted on channel and a
// cancel func that unsubscribes and closes it.
func (b *Bus) Subscribe(channel string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, b.buffer)}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	b.subs[channel] = append(b.subs[channel], sub)
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() { b.remove(channel, sub) })
	}
}

func (b *Bus) remove(channel string, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[channel]
	for i, s := range list {
		if s == sub {
			b.subs[channel] = append(list[:i], list[i+1:]...)
			close(s.ch)
			return
		}
	}
}

// Emit publishes payload on channel and reports whether every subscriber
// received it. Order is preserved per subscriber.
func (b *Bus) Emit(channel, payload string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	ok := true
	evt := Event{Channel: channel, Payload: payload}
	for _, s := range b.subs[channel] {
		select {
		case s.ch <- evt:
		default:
			s.dropped++
			ok = false
			metrics.IncDroppedLine("bus", channel, "buffer_full")
		}
	}
	return ok
}

// Dropped returns how many events were dropped across all subscribers of channel.
func (b *Bus) Dropped(channel string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n uint64
	for _, s := range b.subs[channel] {
		n += s.dropped
	}
	return n
}

// Close closes every subscriber channel. Later Emits are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, list := range b.subs {
		for _, s := range list {
			close(s.ch)
		}
	}
	b.subs = nil
}
