package crawler

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igcrawl/pkg/config"
	errs "igcrawl/pkg/errors"
	"igcrawl/pkg/logger"
	"igcrawl/pkg/models"
	"igcrawl/pkg/storage"
)

func newTestCrawler(t *testing.T, g *fakeGraph, concurrency int) (*Crawler, *storage.Store, *recordingObserver) {
	t.Helper()
	s := newStore(t)
	obs := newRecordingObserver()
	cfg := config.DefaultConfig().Crawl
	cfg.Concurrency = concurrency
	return New(s, g, &cfg, logger.NewNopLogger(), WithObserver(obs)), s, obs
}

func TestCrawlHandleScenario(t *testing.T) {
	g := aliceGraph()
	c, s, obs := newTestCrawler(t, g, 1)
	ctx := context.Background()

	report, err := c.CrawlHandle(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "100", report.SeedID)
	assert.True(t, report.SeedComplete)
	assert.Equal(t, models.RunCompleted, report.Status())
	assert.Equal(t, 5, report.Pulled)
	assert.Zero(t, report.Failures)
	assert.Zero(t, report.Private)

	requireAccount(t, s, "100", models.OrderInfluencer, true)
	requireAccount(t, s, "200", models.OrderTarget, true)
	requireAccount(t, s, "300", models.OrderTarget, true)
	requireAccount(t, s, "400", models.OrderCandidate, true)
	requireAccount(t, s, "600", models.OrderCandidate, true)

	followers, err := s.Neighbors(ctx, "100", models.Followers)
	require.NoError(t, err)
	assert.Equal(t, []string{"200", "300"}, followers)

	following, err := s.Neighbors(ctx, "100", models.Following)
	require.NoError(t, err)
	assert.Equal(t, []string{"400"}, following)

	following, err = s.Neighbors(ctx, "200", models.Following)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"100", "600"}, following)

	// (100,200) is seen again from bob's following list; carol's single
	// following edge is already stored so her list is never fetched
	assert.Equal(t, 1, report.Conflicts)
	assert.Equal(t, 0, g.count("following:300"))

	assert.Equal(t, 0, g.count("followers:200"), "targets do not list their followers")
	assert.Equal(t, 0, g.count("following:400"), "candidates are leaves")
	assert.Equal(t, 0, g.count("profile:900"))
	requireAbsent(t, s, "900")

	assert.Len(t, obs.pulled, 5)
	assert.NotEmpty(t, obs.quota)
	assert.Equal(t, report.RemainingQuota, g.RemainingQuota())
}

func TestCrawlNeverExceedsMaxOrder(t *testing.T) {
	c, s, _ := newTestCrawler(t, aliceGraph(), 1)
	ctx := context.Background()

	_, err := c.Crawl(ctx, "100")
	require.NoError(t, err)

	counts, err := s.CountAccountsByOrder(ctx)
	require.NoError(t, err)
	for order := range counts {
		assert.True(t, order.Valid(), "unexpected order %d", order)
	}
	assert.Equal(t, map[models.Order]int{
		models.OrderInfluencer: 1,
		models.OrderTarget:     2,
		models.OrderCandidate:  2,
	}, counts)
}

func TestCrawlIsIdempotent(t *testing.T) {
	g := aliceGraph()
	c, s, _ := newTestCrawler(t, g, 1)
	ctx := context.Background()

	_, err := c.Crawl(ctx, "100")
	require.NoError(t, err)
	calls := g.totalCalls()
	before, err := s.CountAccountsByOrder(ctx)
	require.NoError(t, err)
	posts, err := s.CountPosts(ctx, "100")
	require.NoError(t, err)

	report, err := c.Crawl(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, calls, g.totalCalls(), "a finished crawl makes no remote calls")
	assert.Zero(t, report.Pulled)
	assert.Equal(t, 1, report.Skipped)
	assert.True(t, report.SeedComplete)

	after, err := s.CountAccountsByOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	n, err := s.CountPosts(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, posts, n)
}

func TestPrivateNeighborIsSkipped(t *testing.T) {
	g := newFakeGraph().
		account("100", "alice", []string{"200", "500"}, nil).
		account("200", "bob", []string{"100"}, nil).
		account("500", "eve", []string{"100"}, []string{"700"}).
		account("700", "grace", []string{"500"}, nil).
		setPrivate("500")
	c, s, obs := newTestCrawler(t, g, 1)

	report, err := c.Crawl(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Private)
	assert.Zero(t, report.Failures)
	assert.True(t, report.SeedComplete, "a private neighbor does not block completion")
	assert.Equal(t, []string{"500"}, obs.private)

	requireAbsent(t, s, "500")
	requireAbsent(t, s, "700")
	assert.Equal(t, 1, g.count("profile:500"))
	assert.Equal(t, 0, g.count("following:500"))
	requireAccount(t, s, "200", models.OrderTarget, true)
}

func TestPrivateSeed(t *testing.T) {
	g := newFakeGraph().account("500", "eve", nil, nil).setPrivate("500")
	c, s, _ := newTestCrawler(t, g, 1)

	report, err := c.Crawl(context.Background(), "500")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Private)
	assert.False(t, report.SeedComplete)
	assert.Equal(t, models.RunPartial, report.Status())
	requireAbsent(t, s, "500")
}

func TestPrivateAfterProfileLeavesAccountIncomplete(t *testing.T) {
	g := aliceGraph()
	c, s, _ := newTestCrawler(t, g, 1)
	ctx := context.Background()

	_, err := c.Pull(ctx, "400", models.OrderCandidate)
	require.NoError(t, err)
	requireAccount(t, s, "400", models.OrderCandidate, true)

	g.setPrivate("400")
	report, err := c.Pull(ctx, "400", models.OrderInfluencer)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Promoted)
	assert.Equal(t, 1, report.Private)

	requireAccount(t, s, "400", models.OrderInfluencer, false)
	n, err := s.CountPosts(ctx, "400")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "stored media is kept")
	requireAbsent(t, s, "900")
}

func TestPromotionRunsOnlyMissingSteps(t *testing.T) {
	g := aliceGraph()
	c, s, obs := newTestCrawler(t, g, 1)
	ctx := context.Background()

	_, err := c.Pull(ctx, "200", models.OrderCandidate)
	require.NoError(t, err)
	requireAccount(t, s, "200", models.OrderCandidate, true)
	assert.Equal(t, 0, g.count("following:200"))

	report, err := c.Crawl(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Promoted)
	assert.Equal(t, ActionPromote, obs.pulled["200"])

	requireAccount(t, s, "200", models.OrderTarget, true)
	assert.Equal(t, 1, g.count("profile:200"), "profile is not refetched on promotion")
	assert.Equal(t, 1, g.count("media:200"))
	assert.Equal(t, 1, g.count("following:200"))
	requireAccount(t, s, "600", models.OrderCandidate, true)
}

func TestPromotionToInfluencer(t *testing.T) {
	g := aliceGraph()
	c, s, _ := newTestCrawler(t, g, 1)
	ctx := context.Background()

	_, err := c.Pull(ctx, "100", models.OrderTarget)
	require.NoError(t, err)
	requireAccount(t, s, "100", models.OrderTarget, true)
	requireAccount(t, s, "400", models.OrderCandidate, true)
	requireAbsent(t, s, "200")

	report, err := c.Crawl(ctx, "100")
	require.NoError(t, err)
	assert.True(t, report.SeedComplete)
	assert.Equal(t, 1, g.count("following:100"), "following was synced at order 2")
	assert.Equal(t, 1, g.count("followers:100"))

	requireAccount(t, s, "100", models.OrderInfluencer, true)
	requireAccount(t, s, "200", models.OrderTarget, true)
	requireAccount(t, s, "300", models.OrderTarget, true)
}

func TestOrderIsNeverDemoted(t *testing.T) {
	g := aliceGraph()
	c, s, _ := newTestCrawler(t, g, 1)
	ctx := context.Background()

	_, err := c.Crawl(ctx, "100")
	require.NoError(t, err)

	report, err := c.Pull(ctx, "100", models.OrderCandidate)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.True(t, report.SeedComplete, "a more important complete order satisfies the request")
	requireAccount(t, s, "100", models.OrderInfluencer, true)
}

func TestFailedSubtreeResumesOnRerun(t *testing.T) {
	g := aliceGraph()
	g.fail("300", errs.New(errs.ErrorTypeNetwork, 0, "connection reset"))
	c, s, obs := newTestCrawler(t, g, 1)
	ctx := context.Background()

	report, err := c.Crawl(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failures)
	assert.False(t, report.SeedComplete)
	assert.Equal(t, models.RunPartial, report.Status())
	assert.Equal(t, []string{"300"}, obs.failed)

	requireAccount(t, s, "100", models.OrderInfluencer, false)
	requireAccount(t, s, "200", models.OrderTarget, true)
	requireAccount(t, s, "400", models.OrderCandidate, true)
	requireAbsent(t, s, "300")

	g.fail("300", nil)
	report, err = c.Crawl(ctx, "100")
	require.NoError(t, err)
	assert.True(t, report.SeedComplete)
	assert.Equal(t, 1, report.Resumed)

	requireAccount(t, s, "100", models.OrderInfluencer, true)
	requireAccount(t, s, "300", models.OrderTarget, true)
	assert.Equal(t, 1, g.count("profile:100"))
	assert.Equal(t, 1, g.count("profile:200"))
	assert.Equal(t, 1, g.count("followers:100"))
}

func TestSeedFailureIsReturned(t *testing.T) {
	g := aliceGraph()
	g.fail("100", errs.New(errs.ErrorTypeAuth, 401, "invalid token"))
	c, s, _ := newTestCrawler(t, g, 1)
	ctx := context.Background()

	report, err := c.Crawl(ctx, "100")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeAuth, errs.TypeOf(err))
	assert.Equal(t, 1, report.Failures)

	runs, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
}

func TestCrawlHandleNotFound(t *testing.T) {
	g := aliceGraph()
	c, s, _ := newTestCrawler(t, g, 1)
	ctx := context.Background()

	_, err := c.CrawlHandle(ctx, "nobody")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))

	runs, err := s.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunFailed, runs[0].Status)
	assert.Equal(t, "nobody", runs[0].SeedHandle)
}

func TestRunIsJournaled(t *testing.T) {
	c, s, _ := newTestCrawler(t, aliceGraph(), 1)
	ctx := context.Background()

	report, err := c.CrawlHandle(ctx, "alice")
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].ID)
	assert.Equal(t, "100", runs[0].SeedID)
	assert.Equal(t, "alice", runs[0].SeedHandle)
	assert.Equal(t, models.RunCompleted, runs[0].Status)
	assert.Equal(t, report.Pulled, runs[0].Pulled)
	require.NotNil(t, runs[0].FinishedAt)
}

func TestGuardRejectsStaleCompletion(t *testing.T) {
	c, s, _ := newTestCrawler(t, aliceGraph(), 1)
	ctx := context.Background()

	_, err := s.UpsertAccount(ctx, &models.Profile{ID: "100", Handle: "alice"}, models.OrderInfluencer, false)
	require.NoError(t, err)

	r := c.newRun(models.OrderTarget)
	require.NoError(t, r.markComplete(ctx, "100", models.OrderTarget))
	assert.Equal(t, int64(1), r.stats.GuardRejected.Load())
	requireAccount(t, s, "100", models.OrderInfluencer, false)
}

func TestInvalidOrder(t *testing.T) {
	c, _, _ := newTestCrawler(t, aliceGraph(), 1)
	_, err := c.Pull(context.Background(), "100", models.Order(4))
	require.Error(t, err)
}

func TestCancelledCrawl(t *testing.T) {
	c, _, _ := newTestCrawler(t, aliceGraph(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Crawl(ctx, "100")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// wideGraph is a seed with many followers that share following targets
func wideGraph() *fakeGraph {
	var followers []string
	for i := 0; i < 12; i++ {
		followers = append(followers, fmt.Sprintf("2%02d", i))
	}
	g := newFakeGraph().account("100", "seed", followers, []string{"300", "301"})
	for i, f := range followers {
		g.account(f, "target"+f, []string{"100"}, []string{"100", "300", fmt.Sprintf("4%02d", i%4)})
	}
	g.account("300", "shared", followers, nil)
	g.account("301", "other", []string{"100"}, nil)
	for i := 0; i < 4; i++ {
		g.account(fmt.Sprintf("4%02d", i), fmt.Sprintf("cand%d", i), nil, nil)
	}
	return g
}

func TestConcurrentCrawlMatchesSequential(t *testing.T) {
	ctx := context.Background()

	seqGraph := wideGraph()
	seq, seqStore, _ := newTestCrawler(t, seqGraph, 1)
	seqReport, err := seq.Crawl(ctx, "100")
	require.NoError(t, err)

	parGraph := wideGraph()
	par, parStore, _ := newTestCrawler(t, parGraph, 4)
	parReport, err := par.Crawl(ctx, "100")
	require.NoError(t, err)

	assert.True(t, seqReport.SeedComplete)
	assert.True(t, parReport.SeedComplete)
	assert.Equal(t, seqReport.Pulled, parReport.Pulled)

	seqCounts, err := seqStore.CountAccountsByOrder(ctx)
	require.NoError(t, err)
	parCounts, err := parStore.CountAccountsByOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, seqCounts, parCounts)

	for id := range parGraph.profiles {
		a, err := parStore.FindAccount(ctx, id)
		require.NoError(t, err, id)
		b, err := seqStore.FindAccount(ctx, id)
		require.NoError(t, err, id)
		assert.Equal(t, b.Order, a.Order, id)
		assert.True(t, a.Complete, id)
	}

	for id := range parGraph.profiles {
		assert.LessOrEqual(t, parGraph.count("profile:"+id), 1, "profile of %s fetched once", id)
	}
}
