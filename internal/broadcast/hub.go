// Package broadcast fans a value out to any number of subscribers. Each
// subscriber has a buffer of one: a slow reader skips intermediate values
// and always ends up with the latest one.
package broadcast

import (
	"context"
	"sync"
)

type Hub[T any] struct {
	mu     sync.Mutex
	subs   map[chan T]struct{}
	last   T
	hasVal bool
}

func New[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[chan T]struct{})}
}

// Publish stores v as the latest value and offers it to every subscriber.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last, h.hasVal = v, true
	for ch := range h.subs {
		offer(ch, v)
	}
}

// Latest returns the last published value.
func (h *Hub[T]) Latest() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.hasVal
}

// Subscribe returns a channel that first receives the latest value (if any)
// and then every later one. It is closed once ctx is done.
func (h *Hub[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	if h.hasVal {
		ch <- h.last
	}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.mu.Unlock()
	}()
	return ch
}

func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	// replace the stale value
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
