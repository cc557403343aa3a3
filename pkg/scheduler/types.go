package scheduler

import (
	"context"
)

// Work is a unit of asynchronous work executed by the pool.
type Work[T any] func(ctx context.Context) (T, error)

// Result carries the outcome of a Work invocation.
type Result[T any] struct {
	Data T
	Err  error
}

// Future is a handle to a pending Result. C yields exactly one value.
type Future[T any] struct {
	input  chan T
	cancel context.CancelFunc
}

func NewFuture[T any](input chan T, cancel context.CancelFunc) *Future[T] {
	return &Future[T]{
		input:  input,
		cancel: cancel,
	}
}

func (f *Future[T]) C() <-chan T {
	return f.input
}

// Stop cancels the context passed to the underlying Work. The worker still
// delivers a Result once the Work returns.
func (f *Future[T]) Stop() {
	f.cancel()
}
