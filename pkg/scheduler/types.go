package scheduler

import (
	"context"
)

// Work is a unit of work run by one worker. It must honor ctx cancellation.
type Work[T any] func(ctx context.Context) (T, error)

type Result[T any] struct {
	Data T
	Err  error
}

// Future receives exactly one Result for the submitted work.
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

// Stop cancels the context of the work. A result is still delivered.
func (f *Future[T]) Stop() {
	f.cancel()
}

// Wait blocks until the result arrives or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case r := <-f.input:
		return r, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
