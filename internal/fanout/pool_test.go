package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igcrawl/pkg/logger"
	"igcrawl/pkg/models"
)

func jobs(n int) []Job {
	out := make([]Job, n)
	for i := range out {
		out[i] = Job{AccountID: fmt.Sprintf("%d", i), Order: models.OrderTarget, Via: models.Followers}
	}
	return out
}

func TestWorkerPoolRunsEveryJob(t *testing.T) {
	pool := NewWorkerPool(4, logger.NewNopLogger())
	var done int32

	g := pool.NewGroup(context.Background(), func(ctx context.Context, job Job) error {
		atomic.AddInt32(&done, 1)
		return nil
	})
	for _, j := range jobs(20) {
		g.Submit(j)
	}
	results := g.Wait()

	assert.Len(t, results, 20)
	assert.Equal(t, int32(20), atomic.LoadInt32(&done))
	for _, r := range results {
		assert.True(t, r.Success())
	}
}

func TestWorkerPoolReportsErrors(t *testing.T) {
	pool := NewWorkerPool(2, logger.NewNopLogger())
	boom := errors.New("boom")

	g := pool.NewGroup(context.Background(), func(ctx context.Context, job Job) error {
		if job.AccountID == "3" {
			return boom
		}
		return nil
	})
	for _, j := range jobs(6) {
		g.Submit(j)
	}

	var failed []Result
	for _, r := range g.Wait() {
		if !r.Success() {
			failed = append(failed, r)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, "3", failed[0].Job.AccountID)
	assert.ErrorIs(t, failed[0].Error, boom)
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(3, logger.NewNopLogger())
	assert.Equal(t, 3, pool.Capacity())

	var running, peak int32
	g := pool.NewGroup(context.Background(), func(ctx context.Context, job Job) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	})
	for _, j := range jobs(12) {
		g.Submit(j)
	}
	g.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Equal(t, 0, pool.ActiveWorkers())
}

func TestWorkerPoolNestedGroupsDoNotDeadlock(t *testing.T) {
	pool := NewWorkerPool(2, logger.NewNopLogger())
	var leaves int32

	var expand Func
	expand = func(ctx context.Context, job Job) error {
		if job.Order == models.OrderCandidate {
			atomic.AddInt32(&leaves, 1)
			return nil
		}
		g := pool.NewGroup(ctx, expand)
		for i := 0; i < 3; i++ {
			g.Submit(Job{AccountID: fmt.Sprintf("%s.%d", job.AccountID, i), Order: job.Order + 1})
		}
		g.Wait()
		return nil
	}

	g := pool.NewGroup(context.Background(), expand)
	g.Submit(Job{AccountID: "root", Order: models.OrderInfluencer})
	g.Wait()

	assert.Equal(t, int32(9), atomic.LoadInt32(&leaves))
}

func TestSingleWorkerRunsInline(t *testing.T) {
	pool := NewWorkerPool(1, logger.NewNopLogger())
	var order []string

	g := pool.NewGroup(context.Background(), func(ctx context.Context, job Job) error {
		order = append(order, job.AccountID)
		return nil
	})
	for _, j := range jobs(3) {
		g.Submit(j)
	}
	g.Wait()

	assert.Equal(t, []string{"0", "1", "2"}, order)
}

func TestCancelledGroupSkipsJobs(t *testing.T) {
	pool := NewWorkerPool(2, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	g := pool.NewGroup(ctx, func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	g.Submit(Job{AccountID: "1"})

	results := g.Wait()
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Error, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
