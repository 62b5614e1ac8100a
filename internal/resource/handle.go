package resource

import (
	"context"
	"errors"
	"sync"
)

var ErrNoInitializer = errors.New("resource: nil initializer")

// Handle memoizes the first initialization of an external collaborator.
// Acquire runs the initializer at most once ever; concurrent acquirers wait
// for the first outcome. A failed initialization is memoized too — the guard
// is a one-shot flag, not a retry queue.
type Handle[T any] struct {
	mu   sync.Mutex
	init func(context.Context) (T, error)
	done bool
	val  T
	err  error
}

func NewHandle[T any](init func(context.Context) (T, error)) *Handle[T] {
	return &Handle[T]{init: init}
}

func (h *Handle[T]) Acquire(ctx context.Context) (T, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.done {
		return h.val, h.err
	}
	if h.init == nil {
		var zero T
		h.done = true
		h.err = ErrNoInitializer
		return zero, h.err
	}

	h.val, h.err = h.init(ctx)
	h.done = true
	h.init = nil
	return h.val, h.err
}

func (h *Handle[T]) Initialized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}
