package scheduler

import (
	"context"
	"fmt"
	"sync"
)

type workRequest struct {
	fn  Work[any]
	c   chan Result[any]
	ctx context.Context
}

// Pool runs submitted Work on a fixed number of workers. Submission never
// blocks the caller beyond handing the request to a worker; results are
// delivered through Futures.
type Pool struct {
	work       chan workRequest
	mainCtx    context.Context
	mainCancel context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func NewPool(nbWorkers int) *Pool {
	if nbWorkers < 1 {
		nbWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		work:       make(chan workRequest),
		mainCtx:    ctx,
		mainCancel: cancel,
	}
	p.wg.Add(nbWorkers)
	for range nbWorkers {
		go p.worker()
	}
	return p
}

// Submit queues fn for execution and returns a Future for its Result.
// If the pool is already closed the Future resolves immediately with
// context.Canceled.
func (p *Pool) Submit(fn Work[any]) *Future[Result[any]] {
	c := make(chan Result[any], 1)
	ctx, cancel := context.WithCancel(p.mainCtx)

	select {
	case <-p.mainCtx.Done():
		c <- Result[any]{Err: context.Canceled}
	case p.work <- workRequest{fn, c, ctx}:
	}

	return NewFuture(c, cancel)
}

// Close stops accepting work and waits for in-flight Work to return.
// In-flight Work observes a cancelled context but is allowed to finish.
func (p *Pool) Close() {
	p.once.Do(func() {
		p.mainCancel()
		p.wg.Wait()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.mainCtx.Done():
			return
		case r := <-p.work:
			p.execute(r)
		}
	}
}

func (p *Pool) execute(r workRequest) {
	defer func() {
		if rec := recover(); rec != nil {
			r.c <- Result[any]{Err: fmt.Errorf("worker panicked: %v", rec)}
		}
	}()

	v, err := r.fn(r.ctx)
	r.c <- Result[any]{Data: v, Err: err}
}
