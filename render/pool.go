package render

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Task is a unit of work run by a [Pool]. The context is cancelled once any
// task of the pool fails.
type Task func(ctx context.Context) error

// Pool runs submitted tasks on a fixed amount of worker goroutines. The first
// task error cancels the pool context and is returned by Close.
type Pool struct {
	tasks   chan Task
	group   *errgroup.Group
	ctx     context.Context
	workers int
}

// NewPool starts a pool of workers goroutines. If workers is not positive
// the amount of logical CPUs is used.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	group, gctx := errgroup.WithContext(ctx)
	p := &Pool{
		tasks:   make(chan Task, workers),
		group:   group,
		ctx:     gctx,
		workers: workers,
	}
	for i := 0; i < workers; i++ {
		group.Go(p.work)
	}
	return p
}

// Workers returns the amount of worker goroutines in the pool.
func (p *Pool) Workers() int { return p.workers }

// Submit queues a task, blocking while all workers are busy and the queue is
// full. It returns an error if the pool context is done.
func (p *Pool) Submit(task Task) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	select {
	case p.tasks <- task:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Close stops accepting tasks, waits for queued tasks to finish and returns
// the first task error. Close must be called exactly once.
func (p *Pool) Close() error {
	close(p.tasks)
	return p.group.Wait()
}

func (p *Pool) work() error {
	for task := range p.tasks {
		if err := p.ctx.Err(); err != nil {
			return err
		}
		if err := task(p.ctx); err != nil {
			return err
		}
	}
	return nil
}
