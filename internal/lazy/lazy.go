// Package lazy holds process-lifetime handles that are built on first use.
//
// A Value is owned by whoever constructs it and is passed explicitly to the
// components that need it. Once initialization succeeds the result is reused
// for the life of the process; there is no teardown or reinitialization.
// A failed initialization is not cached: the next Get tries again, or, with
// WithBackoff, the next Get after the backoff has elapsed.
package lazy

import (
	"context"
	"sync"
	"time"
)

type Value[T any] struct {
	mu    sync.Mutex
	init  func(ctx context.Context) (T, error)
	v     T
	ready bool

	backoff  time.Duration
	err      error
	failedAt time.Time
	now      func() time.Time
}

func New[T any](init func(ctx context.Context) (T, error)) *Value[T] {
	return &Value[T]{init: init, now: time.Now}
}

// Ready wraps an already constructed value.
func Ready[T any](v T) *Value[T] {
	return &Value[T]{v: v, ready: true, now: time.Now}
}

// WithBackoff makes Get return the last init error without retrying until d
// has passed since that failure.
func (l *Value[T]) WithBackoff(d time.Duration) *Value[T] {
	l.backoff = d
	return l
}

func (l *Value[T]) Get(ctx context.Context) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ready {
		return l.v, nil
	}
	var zero T
	if l.err != nil && l.now().Sub(l.failedAt) < l.backoff {
		return zero, l.err
	}
	v, err := l.init(ctx)
	if err != nil {
		l.err, l.failedAt = err, l.now()
		return zero, err
	}
	l.v, l.ready, l.err = v, true, nil
	return v, nil
}
