// Package batch aggregates individually requested item fetches into grouped
// bulk calls. Fetches arriving within one accumulation window are flushed to
// the backend as a single request and the results are fanned back out to
// each waiting caller.
package batch

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned for an id the bulk response did not include.
	ErrNotFound = errors.New("batch: item not found")
	// ErrCanceled is returned to waiters whose pending fetch was canceled
	// before the batch flushed.
	ErrCanceled = errors.New("batch: fetch canceled")
)

// BulkFetchFunc loads a group of items in one backend call. The returned map
// is keyed by the requested ids; ids absent from the map are treated as not
// found.
type BulkFetchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

const (
	DefaultBatchSize  = 10
	DefaultBatchDelay = 500 * time.Millisecond
)

type Options struct {
	// BatchSize caps how many ids a single flush sends. Leftover ids stay
	// pending for the next window.
	BatchSize int
	// BatchDelay is the accumulation window, measured from the insert that
	// armed the timer.
	BatchDelay time.Duration
	// OnFlush, if set, is called with the size of every flushed batch.
	OnFlush func(size int)
}

type result[V any] struct {
	val V
	err error
}

type Aggregator[K comparable, V any] struct {
	fetch BulkFetchFunc[K, V]
	opts  Options

	mu      sync.Mutex
	pending map[K][]chan result[V]
	order   []K
	timer   *time.Timer
	armed   bool
}

func New[K comparable, V any](fetch BulkFetchFunc[K, V], opts Options) *Aggregator[K, V] {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchDelay <= 0 {
		opts.BatchDelay = DefaultBatchDelay
	}
	return &Aggregator[K, V]{
		fetch:   fetch,
		opts:    opts,
		pending: make(map[K][]chan result[V]),
	}
}

// Fetch registers key in the currently accumulating batch and blocks until
// that batch is flushed. Concurrent fetches for the same key join one slot
// and all receive the same outcome. The flush timer is armed only when the
// pending set goes from empty to non-empty, so the window is relative to
// arming time, not to each insert.
//
// If ctx ends first, Fetch returns ctx.Err(); the registration stays and its
// result is discarded when the batch resolves. Use Cancel to withdraw an id
// from the batch entirely.
func (a *Aggregator[K, V]) Fetch(ctx context.Context, key K) (V, error) {
	ch := make(chan result[V], 1)

	a.mu.Lock()
	waiters, ok := a.pending[key]
	if !ok {
		a.order = append(a.order, key)
	}
	a.pending[key] = append(waiters, ch)
	if !a.armed {
		a.armed = true
		a.timer = time.AfterFunc(a.opts.BatchDelay, a.flush)
	}
	a.mu.Unlock()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Cancel withdraws key's pending registration, if it has not been flushed
// yet, and resolves its waiters with ErrCanceled. Other pending ids are not
// affected.
func (a *Aggregator[K, V]) Cancel(key K) {
	a.mu.Lock()
	waiters, ok := a.pending[key]
	if ok {
		delete(a.pending, key)
		for i, k := range a.order {
			if k == key {
				a.order = append(a.order[:i], a.order[i+1:]...)
				break
			}
		}
	}
	a.mu.Unlock()

	for _, ch := range waiters {
		ch <- result[V]{err: ErrCanceled}
	}
}

// Pending reports how many ids are currently waiting to be flushed.
func (a *Aggregator[K, V]) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

func (a *Aggregator[K, V]) flush() {
	a.mu.Lock()
	n := len(a.order)
	if n == 0 {
		a.armed = false
		a.timer = nil
		a.mu.Unlock()
		return
	}
	if n > a.opts.BatchSize {
		n = a.opts.BatchSize
	}
	keys := make([]K, n)
	copy(keys, a.order)
	a.order = a.order[n:]
	// Extracted ids leave the pending set before the backend call so that
	// fetches arriving mid-flight accumulate into a fresh batch.
	extracted := make(map[K][]chan result[V], n)
	for _, k := range keys {
		extracted[k] = a.pending[k]
		delete(a.pending, k)
	}
	a.mu.Unlock()

	if a.opts.OnFlush != nil {
		a.opts.OnFlush(len(keys))
	}

	// The batch outlives the callers that queued it.
	found, err := a.fetch(context.Background(), keys)

	for _, k := range keys {
		r := result[V]{err: ErrNotFound}
		if err != nil {
			r = result[V]{err: err}
		} else if v, ok := found[k]; ok {
			r = result[V]{val: v}
		}
		for _, ch := range extracted[k] {
			ch <- r
		}
	}

	a.mu.Lock()
	a.timer = nil
	if len(a.order) > 0 {
		// Ids deferred past the batch size cap, or queued while the
		// flush was in flight, get their own window.
		a.timer = time.AfterFunc(a.opts.BatchDelay, a.flush)
	} else {
		a.armed = false
	}
	a.mu.Unlock()
}
