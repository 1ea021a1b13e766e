// Package connection provides the shared, lazily established backend handle
// used by every storage adapter.
package connection

import (
	"context"
	"sync"
	"sync/atomic"
)

// ConnectFunc establishes the underlying client/session
type ConnectFunc[T any] func(ctx context.Context) (T, error)

type attempt[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Lazy memoizes one connection per adapter instance.
//
// The first Get starts the connect; every concurrent Get waits for that same
// attempt instead of dialing again. A successful result is kept until Reset.
// A failed attempt is handed to all its waiters and then forgotten, so the
// next Get dials afresh. There is no retry or backoff here.
type Lazy[T any] struct {
	connect ConnectFunc[T]

	mu       sync.Mutex
	inflight *attempt[T]
	ready    bool
	value    T

	attempts atomic.Int64
}

// NewLazy creates a Lazy that calls connect on first use
func NewLazy[T any](connect ConnectFunc[T]) *Lazy[T] {
	return &Lazy[T]{connect: connect}
}

// Get returns the memoized value, connecting if needed.
// The connect runs detached from ctx so that one caller giving up does not
// fail the attempt for the others; ctx only bounds how long this caller waits.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.Lock()
	if l.ready {
		value := l.value
		l.mu.Unlock()
		return value, nil
	}

	a := l.inflight
	if a == nil {
		a = &attempt[T]{done: make(chan struct{})}
		l.inflight = a
		l.attempts.Add(1)
		go l.run(context.WithoutCancel(ctx), a)
	}
	l.mu.Unlock()

	select {
	case <-a.done:
		return a.value, a.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (l *Lazy[T]) run(ctx context.Context, a *attempt[T]) {
	value, err := l.connect(ctx)

	l.mu.Lock()
	if err == nil {
		l.value = value
		l.ready = true
	}
	l.inflight = nil
	l.mu.Unlock()

	a.value = value
	a.err = err
	close(a.done)
}

// Peek returns the memoized value without connecting
func (l *Lazy[T]) Peek() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.ready
}

// Reset forgets the memoized value and returns it so the caller can close it.
// An attempt already in flight is not affected.
func (l *Lazy[T]) Reset() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	value, ok := l.value, l.ready
	var zero T
	l.value = zero
	l.ready = false
	return value, ok
}

// Attempts returns how many connects have been started
func (l *Lazy[T]) Attempts() int64 {
	return l.attempts.Load()
}
