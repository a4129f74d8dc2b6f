package core

import (
	"context"
	"sync"
)

// Lazy is a concurrency-safe deferred computation cell. The wrapped function
// runs on first Force and its result is cached. A failed attempt leaves the
// cell unresolved so a later Force may retry.
type Lazy[T any] struct {
	mu      sync.Mutex
	done    bool
	value   T
	resolve func(ctx context.Context) (T, error)
}

func NewLazy[T any](resolve func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{resolve: resolve}
}

// Force returns the cell's value, computing it if no prior call succeeded.
// Concurrent callers serialize, so the computation runs at most once.
func (l *Lazy[T]) Force(ctx context.Context) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return l.value, nil
	}

	value, err := l.resolve(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	l.value = value
	l.done = true
	return value, nil
}

// Resolved reports whether a Force call has completed successfully.
func (l *Lazy[T]) Resolved() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// Peek returns the cached value without triggering the computation.
func (l *Lazy[T]) Peek() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.done
}
