package engine

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueFull is returned when a query arrives while the admission
// queue is already at capacity. The caller should retry later; queries
// are never silently dropped once admitted.
var ErrQueueFull = errors.New("engine: query queue full")

// gate serializes query execution. The scene adapter lives on the
// host's main thread and is not safe for concurrent reads, so exactly
// one query runs at a time and at most maxWait callers may wait for
// their turn. Callers beyond that are rejected immediately with
// ErrQueueFull rather than queued unboundedly.
type gate struct {
	mu      sync.Mutex
	waiting int
	maxWait int
	slot    chan struct{} // capacity 1: the single execution slot
}

func newGate(maxWait int) *gate {
	g := &gate{maxWait: maxWait, slot: make(chan struct{}, 1)}
	g.slot <- struct{}{}
	return g
}

// acquire claims the execution slot, waiting if it is held. Returns
// ErrQueueFull when the waiting line is already at capacity, or the
// context error if the caller gives up first.
func (g *gate) acquire(ctx context.Context) error {
	g.mu.Lock()
	if g.waiting >= g.maxWait {
		g.mu.Unlock()
		return ErrQueueFull
	}
	g.waiting++
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.waiting--
		g.mu.Unlock()
	}()

	// A free slot wins over a done context: the executor surfaces
	// cancellation as a non-error outcome once the query is admitted.
	select {
	case <-g.slot:
		return nil
	default:
	}
	select {
	case <-g.slot:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release returns the execution slot. Must follow a successful acquire.
func (g *gate) release() {
	g.slot <- struct{}{}
}
