package worker

import (
	"context"
	"runtime"
	"sync"
)

// Pool runs independent pipeline jobs on a fixed number of goroutines.
type Pool struct {
	workers  int
	jobQueue chan func()
	wg       sync.WaitGroup
	start    sync.Once
	stop     sync.Once
}

// NewPool creates a pool with the given number of workers. Zero or a
// negative count means one worker per CPU.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Pool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2),
	}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int { return p.workers }

// Start launches the workers. Calling it more than once is a no-op.
func (p *Pool) Start() {
	p.start.Do(func() {
		for i := 0; i < p.workers; i++ {
			go p.worker()
		}
	})
}

func (p *Pool) worker() {
	for job := range p.jobQueue {
		job()
		p.wg.Done()
	}
}

// Submit queues a job. It blocks while the queue is full and gives up with
// ctx.Err() if the context ends first; the job is then never run.
func (p *Pool) Submit(ctx context.Context, job func()) error {
	p.wg.Add(1)
	select {
	case p.jobQueue <- job:
		return nil
	case <-ctx.Done():
		p.wg.Done()
		return ctx.Err()
	}
}

// Wait blocks until every submitted job has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Close stops the workers once the queue drains. Submit must not be called
// after Close.
func (p *Pool) Close() {
	p.stop.Do(func() {
		close(p.jobQueue)
	})
}
