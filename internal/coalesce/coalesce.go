// Package coalesce provides single-flight request coalescing: concurrent
// requests for the same key share one in-flight producer call and all
// observe the same result.
package coalesce

import (
	"context"
	"sync"
)

// Producer loads the value for a key. It is invoked at most once per
// outstanding key.
type Producer[K comparable, V any] func(ctx context.Context, key K) (V, error)

// call is an in-flight or completed producer invocation. Waiters block on
// done; val and err are written exactly once, before done is closed.
type call[V any] struct {
	done chan struct{}
	val  V
	err  error
}

type Coalescer[K comparable, V any] struct {
	producer Producer[K, V]

	mu      sync.Mutex
	pending map[K]*call[V]
}

func New[K comparable, V any](producer Producer[K, V]) *Coalescer[K, V] {
	return &Coalescer[K, V]{
		producer: producer,
		pending:  make(map[K]*call[V]),
	}
}

// Do returns the producer's result for key, making sure that only one
// producer call is in-flight for a given key at a time. If a duplicate
// comes in, the duplicate caller waits for the original to complete and
// receives the same result or error.
func (c *Coalescer[K, V]) Do(ctx context.Context, key K) (V, error) {
	c.mu.Lock()
	if p, ok := c.pending[key]; ok {
		c.mu.Unlock()
		<-p.done
		return p.val, p.err
	}
	p := &call[V]{done: make(chan struct{})}
	c.pending[key] = p
	c.mu.Unlock()

	// The shared call outlives any single caller, so it must not die with
	// the first caller's context.
	p.val, p.err = c.producer(context.WithoutCancel(ctx), key)

	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
	close(p.done)

	return p.val, p.err
}

// Pending reports how many keys currently have an in-flight call.
func (c *Coalescer[K, V]) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
