package refdata

import (
	"context"
	"sync"
	"sync/atomic"
)

// Lazy holds a value loaded on first use. Concurrent first callers block on
// one load; later callers take the lock-free fast path. A failed load is
// not remembered, so the next caller retries.
type Lazy[T any] struct {
	load func(ctx context.Context) (T, error)

	mu     sync.Mutex
	loaded atomic.Bool
	val    T
}

// NewLazy returns a Lazy backed by load.
func NewLazy[T any](load func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{load: load}
}

// Get returns the value, loading it if needed.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	if l.loaded.Load() {
		return l.val, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded.Load() {
		return l.val, nil
	}

	v, err := l.load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	l.val = v
	l.loaded.Store(true)
	return v, nil
}

// Loaded reports whether the value is available without loading.
func (l *Lazy[T]) Loaded() bool {
	return l.loaded.Load()
}
