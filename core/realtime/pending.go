package realtime

import (
	"context"
	"sync"
)

// pending is a value that is resolved exactly once. Later resolutions are
// ignored.
type pending[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func newPending[T any]() *pending[T] {
	return &pending[T]{done: make(chan struct{})}
}

func (p *pending[T]) resolve(value T, err error) (resolved bool) {
	p.once.Do(func() {
		p.value, p.err = value, err
		close(p.done)
		resolved = true
	})
	return resolved
}

func (p *pending[T]) isResolved() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *pending[T]) wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
