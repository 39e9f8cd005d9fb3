package batch

import (
	"context"
	"runtime"
	"sync"
)

// Pool fans jobs out to a fixed number of workers and collects their
// results on one channel. The caller must drain Results until it is closed.
type Pool[Job any, Result any] struct {
	numWorkers int
	jobs       chan Job
	results    chan Result
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// NewPool creates a pool of numWorkers workers (NumCPU if not positive) with
// job and result queues of the given depth.
func NewPool[Job any, Result any](numWorkers, depth int) *Pool[Job, Result] {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if depth < 0 {
		depth = 0
	}
	return &Pool[Job, Result]{
		numWorkers: numWorkers,
		jobs:       make(chan Job, depth),
		results:    make(chan Result, depth),
	}
}

// Workers returns the number of workers.
func (p *Pool[Job, Result]) Workers() int {
	return p.numWorkers
}

// Start launches the workers. fn runs once per job; a cancelled ctx is
// passed through so fn can return early, but every submitted job still
// produces a result.
func (p *Pool[Job, Result]) Start(ctx context.Context, fn func(context.Context, Job) Result) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.results <- fn(ctx, job)
			}
		}()
	}
}

// Submit queues a job, blocking while the queue is full. It gives up and
// returns ctx.Err() if ctx is cancelled first.
func (p *Pool[Job, Result]) Submit(ctx context.Context, job Job) error {
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs. Results is closed once every queued job has
// been processed. Close may be called more than once.
func (p *Pool[Job, Result]) Close() {
	p.closeOnce.Do(func() {
		close(p.jobs)
		go func() {
			p.wg.Wait()
			close(p.results)
		}()
	})
}

// Results returns the results channel.
func (p *Pool[Job, Result]) Results() <-chan Result {
	return p.results
}
