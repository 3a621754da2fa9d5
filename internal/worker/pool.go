// Package worker provides the concurrency primitives for batch
// verification: a fixed-size job pool, per-provider rate limiting, and the
// ticker batch processor.
package worker

import (
	"context"
	"sync"
)

// Job is a unit of work scheduled on the pool.
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of one job.
type Result interface {
	GetError() error
}

// Pool fans jobs out over a fixed number of goroutines. The context passed
// to Start governs the whole run: cancelling it stops workers after their
// current job and abandons anything still queued.
type Pool struct {
	workers int
	jobs    chan Job
	results chan Result
	wg      sync.WaitGroup
}

// NewPool creates a pool. A worker count below 1 is treated as 1.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, workers*2),
		results: make(chan Result, workers*2),
	}
}

// Start launches the workers under ctx.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			res := job.Execute(ctx)
			select {
			case p.results <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job, blocking while the queue is full. It returns ctx.Err()
// when the run is cancelled before the job could be queued.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- job:
		return nil
	}
}

// Wait closes the queue and returns the results of every job that ran.
// Call exactly once, after the last Submit.
func (p *Pool) Wait() []Result {
	close(p.jobs)
	go func() {
		p.wg.Wait()
		close(p.results)
	}()

	var out []Result
	for res := range p.results {
		out = append(out, res)
	}
	return out
}
