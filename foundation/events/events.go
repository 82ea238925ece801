// Package events fans values out to the goroutines that follow the chain,
// such as a run waiting on the blocks a background miner appends.
package events

import (
	"fmt"
	"sync"
)

// messageBuffer is the number of events a slow subscriber can fall behind
// before events are dropped for it.
const messageBuffer = 100

// Events maintains the subscribers by unique id. Each subscriber has its
// own buffered channel.
type Events[T any] struct {
	mu   sync.RWMutex
	subs map[string]chan T
}

// New constructs an Events for values of type T.
func New[T any]() *Events[T] {
	return &Events[T]{
		subs: make(map[string]chan T),
	}
}

// Acquire subscribes the id and returns the channel its events arrive on.
// Acquiring an id again returns the same channel.
func (evt *Events[T]) Acquire(id string) <-chan T {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if ch, exists := evt.subs[id]; exists {
		return ch
	}

	ch := make(chan T, messageBuffer)
	evt.subs[id] = ch

	return ch
}

// Release unsubscribes the id and closes its channel.
func (evt *Events[T]) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.subs[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.subs, id)
	close(ch)

	return nil
}

// Send delivers the value to every subscriber without blocking and returns
// how many received it. A subscriber with a full buffer misses the value.
func (evt *Events[T]) Send(v T) int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	var delivered int
	for _, ch := range evt.subs {
		select {
		case ch <- v:
			delivered++
		default:
		}
	}

	return delivered
}

// Shutdown releases every subscriber.
func (evt *Events[T]) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.subs {
		delete(evt.subs, id)
		close(ch)
	}
}
