package jobs

import (
	"context"
	"sync"
)

// SharedCompletion is a one-shot result container that any number of
// independent waiters can await. The first Complete wins; later calls are
// ignored. Waiters that arrive after completion observe the stored result
// immediately without re-running the underlying computation.
type SharedCompletion[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// NewSharedCompletion returns an incomplete container.
func NewSharedCompletion[T any]() *SharedCompletion[T] {
	return &SharedCompletion[T]{done: make(chan struct{})}
}

// Complete stores the result and releases every waiter. Returns true if this
// call was the one that completed the container.
func (c *SharedCompletion[T]) Complete(value T, err error) bool {
	won := false
	c.once.Do(func() {
		c.value = value
		c.err = err
		close(c.done)
		won = true
	})
	return won
}

// Done returns a channel closed once the container is complete. The signal is
// level-triggered: it stays closed forever after completion.
func (c *SharedCompletion[T]) Done() <-chan struct{} {
	return c.done
}

// IsDone polls completion without blocking.
func (c *SharedCompletion[T]) IsDone() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Result returns the stored value and error. Valid only after completion;
// before that it returns the zero value and nil.
func (c *SharedCompletion[T]) Result() (T, error) {
	select {
	case <-c.done:
		return c.value, c.err
	default:
		var zero T
		return zero, nil
	}
}

// Wait blocks until the container completes or ctx is cancelled. A completed
// container always wins a race against cancellation so that waiters never
// miss a result that is already available.
func (c *SharedCompletion[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-c.done:
		return c.value, c.err
	case <-ctx.Done():
		select {
		case <-c.done:
			return c.value, c.err
		default:
			var zero T
			return zero, ctx.Err()
		}
	}
}
