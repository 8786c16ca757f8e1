package fanout

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"igcrawl/pkg/logger"
	"igcrawl/pkg/models"
)

// Job is one neighbor to expand at a given order
type Job struct {
	AccountID string
	Order     models.Order
	Via       models.Direction
}

// Result is the outcome of one Job
type Result struct {
	Job      Job
	Error    error
	Duration time.Duration
}

// Success reports whether the job finished without error
func (r Result) Success() bool { return r.Error == nil }

// Func expands one job
type Func func(ctx context.Context, job Job) error

// WorkerPool bounds how many expansions run at once across the whole crawl.
// Jobs are handed to a free worker slot; when every slot is busy the
// submitting goroutine runs the job itself. Expansions submit their own
// children, so blocking for a slot could deadlock the tree.
type WorkerPool struct {
	slots  chan struct{}
	active int32
	logger logger.Logger
}

// NewWorkerPool creates a pool with numWorkers slots. With one worker or
// fewer every job runs inline, which is a plain depth-first crawl.
func NewWorkerPool(numWorkers int, log logger.Logger) *WorkerPool {
	if log == nil {
		log = logger.GetLogger()
	}
	var slots chan struct{}
	if numWorkers > 1 {
		// the submitting goroutine is a worker too
		slots = make(chan struct{}, numWorkers-1)
	}
	return &WorkerPool{slots: slots, logger: log}
}

// Group collects the results of jobs submitted together
type Group struct {
	pool    *WorkerPool
	ctx     context.Context
	fn      Func
	wg      sync.WaitGroup
	mu      sync.Mutex
	results []Result
}

// NewGroup starts a batch of jobs run by fn
func (wp *WorkerPool) NewGroup(ctx context.Context, fn Func) *Group {
	return &Group{pool: wp, ctx: ctx, fn: fn}
}

// Submit runs job on a free worker or, if none is free, on the caller
func (g *Group) Submit(job Job) {
	if g.ctx.Err() != nil {
		g.record(Result{Job: job, Error: g.ctx.Err()})
		return
	}

	select {
	case g.pool.slots <- struct{}{}:
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			defer func() { <-g.pool.slots }()
			g.record(g.pool.process(g.ctx, job, g.fn, true))
		}()
	default:
		g.record(g.pool.process(g.ctx, job, g.fn, false))
	}
}

// Wait blocks until every submitted job is done and returns their results
// in completion order.
func (g *Group) Wait() []Result {
	g.wg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.results
}

func (g *Group) record(r Result) {
	g.mu.Lock()
	g.results = append(g.results, r)
	g.mu.Unlock()
}

func (wp *WorkerPool) process(ctx context.Context, job Job, fn Func, async bool) Result {
	atomic.AddInt32(&wp.active, 1)
	defer atomic.AddInt32(&wp.active, -1)

	start := time.Now()
	err := fn(ctx, job)
	result := Result{Job: job, Error: err, Duration: time.Since(start)}

	if err != nil {
		wp.logger.DebugWithFields("Expansion job failed", map[string]interface{}{
			"account_id": job.AccountID,
			"order":      int(job.Order),
			"async":      async,
			"error":      err.Error(),
		})
	}
	return result
}

// ActiveWorkers returns the number of jobs currently running
func (wp *WorkerPool) ActiveWorkers() int {
	return int(atomic.LoadInt32(&wp.active))
}

// Capacity returns the maximum number of jobs that run at once
func (wp *WorkerPool) Capacity() int {
	return cap(wp.slots) + 1
}
