package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"igcrawl/internal/fanout"
	"igcrawl/internal/keylock"
	"igcrawl/pkg/config"
	errs "igcrawl/pkg/errors"
	"igcrawl/pkg/logger"
	"igcrawl/pkg/metrics"
	"igcrawl/pkg/models"
)

// ErrIncomplete marks an account left incomplete because part of its
// neighborhood failed. The failing accounts were already reported.
var ErrIncomplete = errors.New("subtree incomplete")

// Crawler is the order-aware crawl controller
type Crawler struct {
	store    Store
	client   GraphClient
	cfg      config.CrawlConfig
	pool     *fanout.WorkerPool
	locks    *keylock.Locker
	observer Observer
	logger   logger.Logger
}

// Option customizes a Crawler
type Option func(*Crawler)

// WithObserver receives per-account outcomes
func WithObserver(o Observer) Option {
	return func(c *Crawler) {
		if o != nil {
			c.observer = o
		}
	}
}

// New creates a crawl controller. A nil cfg uses the default crawl settings.
func New(store Store, client GraphClient, cfg *config.CrawlConfig, log logger.Logger, opts ...Option) *Crawler {
	if cfg == nil {
		cfg = &config.DefaultConfig().Crawl
	}
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "crawler")

	c := &Crawler{
		store:    store,
		client:   client,
		cfg:      *cfg,
		pool:     fanout.NewWorkerPool(cfg.Concurrency, log),
		locks:    keylock.New(),
		observer: nopObserver{},
		logger:   log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CrawlHandle resolves handle and crawls it as an influencer. A handle that
// matches no account returns a not_found error.
func (c *Crawler) CrawlHandle(ctx context.Context, handle string) (*Report, error) {
	run := c.newRun(models.OrderInfluencer)
	run.report.SeedHandle = handle

	id, err := c.client.ResolveHandle(ctx, handle)
	if err != nil {
		c.logger.WithError(err).WithField("handle", handle).Warn("Could not resolve seed handle")
		c.journalFailed(ctx, run, err)
		return run.finish(), fmt.Errorf("resolve %q: %w", handle, err)
	}
	return c.execute(ctx, run, id)
}

// Crawl pulls accountID as an influencer and everything reachable from it
func (c *Crawler) Crawl(ctx context.Context, accountID string) (*Report, error) {
	return c.Pull(ctx, accountID, models.OrderInfluencer)
}

// Pull runs the state machine for accountID at order and recurses into its
// neighbors. A private account or a failed neighbor subtree does not fail
// the call; the report counts them and the account stays incomplete.
func (c *Crawler) Pull(ctx context.Context, accountID string, order models.Order) (*Report, error) {
	if !order.Valid() {
		return nil, fmt.Errorf("invalid order %d", order)
	}
	return c.execute(ctx, c.newRun(order), accountID)
}

func (c *Crawler) execute(ctx context.Context, r *run, seedID string) (*Report, error) {
	r.report.SeedID = seedID
	c.journalStart(ctx, r)

	c.logger.InfoWithFields("Starting crawl", map[string]interface{}{
		"run_id":      r.report.RunID,
		"seed_id":     seedID,
		"order":       int(r.report.Order),
		"concurrency": c.pool.Capacity(),
	})

	err := r.pull(ctx, seedID, r.report.Order)
	if errors.Is(err, ErrIncomplete) {
		err = nil
	}

	if acct, ferr := c.store.FindAccount(ctx, seedID); ferr == nil {
		r.report.SeedComplete = acct.Complete && acct.Order <= r.report.Order
	}
	report := r.finish()

	fields := map[string]interface{}{
		"run_id":          report.RunID,
		"seed_id":         seedID,
		"pulled":          report.Pulled,
		"promoted":        report.Promoted,
		"private":         report.Private,
		"failures":        report.Failures,
		"conflicts":       report.Conflicts,
		"remaining_quota": report.RemainingQuota,
		"duration_ms":     report.Duration.Milliseconds(),
	}
	if err != nil {
		c.logger.WithError(err).WithFields(fields).Error("Crawl failed")
		c.journalFailed(ctx, r, err)
		return report, err
	}
	c.logger.InfoWithFields("Crawl finished", fields)
	c.journalFinish(ctx, r, report.Status(), "")
	return report, nil
}

// run is the state of one crawl: counters and the accounts visited so far
type run struct {
	c        *Crawler
	ingester *Ingester
	stats    *Stats
	report   Report
	started  time.Time

	mu     sync.Mutex
	visits map[string]*visit
}

// visit is one account being expanded in this run
type visit struct {
	order models.Order
	done  chan struct{}
	err   error
}

func (c *Crawler) newRun(order models.Order) *run {
	stats := &Stats{}
	return &run{
		c:        c,
		ingester: NewIngester(c.store, c.client, c.cfg.EdgeTolerance, c.cfg.MaxEdgePages, stats, c.logger),
		stats:    stats,
		report:   Report{RunID: uuid.NewString(), Order: order},
		started:  time.Now(),
		visits:   make(map[string]*visit),
	}
}

func (r *run) finish() *Report {
	r.stats.fill(&r.report)
	r.report.RemainingQuota = r.c.client.RemainingQuota()
	r.report.Duration = time.Since(r.started)
	out := r.report
	return &out
}

// claim registers an expansion of id at order. It returns the visit to
// complete, or the visit already running at the same order to wait for.
// skip is true when id was already reached at a more important order.
func (r *run) claim(id string, order models.Order) (mine, running *visit, skip bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.visits[id]
	switch {
	case ok && prev.order < order:
		return nil, nil, true
	case ok && prev.order == order:
		return nil, prev, false
	}
	v := &visit{order: order, done: make(chan struct{})}
	r.visits[id] = v
	return v, nil, false
}

// pull is the per-account state machine. Order strictly increases down the
// tree, so a visit never waits on one of its ancestors.
func (r *run) pull(ctx context.Context, id string, order models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mine, running, skip := r.claim(id, order)
	if skip {
		return nil
	}
	if running != nil {
		select {
		case <-running.done:
			return running.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	err := r.expandAccount(ctx, id, order)
	mine.err = err
	close(mine.done)
	return err
}

func (r *run) expandAccount(ctx context.Context, id string, order models.Order) error {
	plan, proceed, err := r.pullOwn(ctx, id, order)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.fail(id, order, err)
		return err
	}
	if !proceed {
		return nil
	}

	if err := r.expand(ctx, id, plan); err != nil {
		return err
	}
	return r.markComplete(ctx, id, order)
}

// pullOwn decides what to do with id and runs its own ingestion steps while
// holding the account's lock. proceed is false when there is nothing more to
// do for the account in this run.
func (r *run) pullOwn(ctx context.Context, id string, order models.Order) (Plan, bool, error) {
	unlock := r.c.locks.Lock(id)
	defer unlock()

	start := time.Now()
	defer metrics.ObservePull(start)

	acct, err := r.c.store.FindAccount(ctx, id)
	if err != nil {
		if !errs.IsNotFound(err) {
			return Plan{}, false, err
		}
		acct = nil
	}

	action := Decide(acct, order)
	log := r.c.logger.WithFields(map[string]interface{}{
		"account_id": id,
		"order":      int(order),
		"action":     action.String(),
	})

	switch action {
	case ActionDone, ActionKeep:
		r.stats.Skipped.Add(1)
		log.Debug("Nothing to pull")
		return Plan{}, false, nil
	case ActionPromote:
		if _, err := r.c.store.UpdateOrder(ctx, id, order); err != nil {
			return Plan{}, false, err
		}
		r.stats.Promoted.Add(1)
		log.WithField("previous_order", int(acct.Order)).Info("Promoting account")
	case ActionResume:
		r.stats.Resumed.Add(1)
		log.Debug("Resuming unfinished pull")
	}

	steps := stepsFor(action, acct, order)
	if acct != nil {
		acct.Order = order
	}

	for _, step := range steps {
		var outcome Outcome
		switch step {
		case StepProfile:
			acct, outcome, err = r.ingester.EnsureProfile(ctx, id, order)
		case StepMedia:
			outcome, err = r.ingester.EnsureMedia(ctx, id)
		case StepFollowers:
			outcome, err = r.ingester.EnsureFollowers(ctx, acct)
		case StepFollowing:
			outcome, err = r.ingester.EnsureFollowing(ctx, acct)
		}
		if err != nil {
			return Plan{}, false, fmt.Errorf("%s step of %s: %w", step, id, err)
		}

		switch outcome {
		case Private:
			r.stats.Private.Add(1)
			metrics.PrivateSkips.Inc()
			r.c.observer.AccountPrivate(id)
			return Plan{}, false, nil
		case Unavailable:
			r.stats.Unavailable.Add(1)
			return Plan{}, false, nil
		}
	}

	r.stats.Pulled.Add(1)
	metrics.IncPulled(int(order), action.String())
	r.c.observer.AccountPulled(id, order, action)

	quota := r.c.client.RemainingQuota()
	metrics.SetQuota(quota)
	logger.LogQuota(log, quota)
	r.c.observer.QuotaRemaining(quota)

	log.WithField("steps", len(steps)).Debug("Account pulled")
	return PlanFor(order), true, nil
}

// expand visits the stored neighbors named by the plan's expansions. An
// account reachable through several lists is visited once, at its most
// important order.
func (r *run) expand(ctx context.Context, id string, plan Plan) error {
	var (
		jobs  []fanout.Job
		index = make(map[string]int)
	)
	for _, exp := range plan.Expand {
		ids, err := r.c.store.Neighbors(ctx, id, exp.Dir)
		if err != nil {
			return err
		}
		for _, n := range ids {
			if n == id {
				continue
			}
			if i, ok := index[n]; ok {
				if exp.Order < jobs[i].Order {
					jobs[i].Order = exp.Order
					jobs[i].Via = exp.Dir
				}
				continue
			}
			index[n] = len(jobs)
			jobs = append(jobs, fanout.Job{AccountID: n, Order: exp.Order, Via: exp.Dir})
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	group := r.c.pool.NewGroup(ctx, func(ctx context.Context, job fanout.Job) error {
		return r.pull(ctx, job.AccountID, job.Order)
	})
	for _, job := range jobs {
		group.Submit(job)
	}

	failed := 0
	for _, res := range group.Wait() {
		if res.Success() {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		failed++
	}
	if failed > 0 {
		r.c.logger.WarnWithFields("Neighbors left incomplete", map[string]interface{}{
			"account_id": id,
			"failed":     failed,
			"neighbors":  len(jobs),
		})
		return fmt.Errorf("%w: %d of %d neighbors of %s", ErrIncomplete, failed, len(jobs), id)
	}
	return nil
}

// markComplete writes the completion flag guarded by order. A rejected write
// means a more important branch owns the account now; it is not an error.
func (r *run) markComplete(ctx context.Context, id string, order models.Order) error {
	applied, err := r.c.store.UpdateCompletion(ctx, id, order, true)
	if err != nil {
		r.fail(id, order, err)
		return err
	}
	if !applied {
		r.stats.GuardRejected.Add(1)
		r.c.logger.DebugWithFields("Completion write rejected by order guard", map[string]interface{}{
			"account_id": id,
			"order":      int(order),
		})
	}
	return nil
}

func (r *run) fail(id string, order models.Order, err error) {
	r.stats.Failures.Add(1)
	metrics.SubtreeFailures.Inc()
	r.c.observer.AccountFailed(id, err)
	r.c.logger.WithError(err).WithFields(map[string]interface{}{
		"account_id": id,
		"order":      int(order),
		"error_type": string(errs.TypeOf(err)),
	}).Error("Account subtree failed")
}

func (c *Crawler) journal() RunJournal {
	j, _ := c.store.(RunJournal)
	return j
}

func (c *Crawler) journalStart(ctx context.Context, r *run) {
	j := c.journal()
	if j == nil {
		return
	}
	err := j.RecordRunStart(ctx, &models.CrawlRun{
		ID:         r.report.RunID,
		SeedID:     r.report.SeedID,
		SeedHandle: r.report.SeedHandle,
		StartedAt:  r.started.UTC(),
		Status:     models.RunRunning,
	})
	if err != nil {
		c.logger.WithError(err).Warn("Failed to journal crawl start")
	}
}

func (c *Crawler) journalFinish(ctx context.Context, r *run, status, msg string) {
	j := c.journal()
	if j == nil {
		return
	}
	// the run is journaled even when ctx was cancelled
	ctx = context.WithoutCancel(ctx)

	err := j.RecordRunFinish(ctx, &models.CrawlRun{
		ID:       r.report.RunID,
		SeedID:   r.report.SeedID,
		Status:   status,
		Pulled:   int(r.stats.Pulled.Load()),
		Private:  int(r.stats.Private.Load()),
		Failures: int(r.stats.Failures.Load()),
		Error:    msg,
	})
	if err != nil {
		c.logger.WithError(err).Warn("Failed to journal crawl finish")
	}
}

func (c *Crawler) journalFailed(ctx context.Context, r *run, err error) {
	if r.report.SeedID == "" {
		// never started: record start and finish together
		c.journalStart(context.WithoutCancel(ctx), r)
	}
	c.journalFinish(ctx, r, models.RunFailed, err.Error())
}
