package crawler

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	errs "igcrawl/pkg/errors"
	"igcrawl/pkg/logger"
	"igcrawl/pkg/models"
	"igcrawl/pkg/storage"
)

// fakeGraph is an in-memory graph client
type fakeGraph struct {
	mu        sync.Mutex
	handles   map[string]string
	profiles  map[string]*models.Profile
	posts     map[string][]models.Post
	followers map[string][]string
	following map[string][]string
	private   map[string]bool
	failures  map[string]error
	pageSize  int
	calls     map[string]int
	quota     int
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		handles:   make(map[string]string),
		profiles:  make(map[string]*models.Profile),
		posts:     make(map[string][]models.Post),
		followers: make(map[string][]string),
		following: make(map[string][]string),
		private:   make(map[string]bool),
		failures:  make(map[string]error),
		pageSize:  2,
		calls:     make(map[string]int),
		quota:     5000,
	}
}

// account registers an account whose stated counts match its lists
func (g *fakeGraph) account(id, handle string, followers, following []string) *fakeGraph {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.handles[handle] = id
	g.profiles[id] = &models.Profile{
		ID:             id,
		Handle:         handle,
		FollowerCount:  len(followers),
		FollowingCount: len(following),
		PostCount:      2,
	}
	caption := "post by " + handle
	g.posts[id] = []models.Post{
		{ID: id + "-p1", LikeCount: 10, CommentCount: 1, Caption: &caption},
		{ID: id + "-p2", LikeCount: 3},
	}
	g.followers[id] = followers
	g.following[id] = following
	return g
}

func (g *fakeGraph) setPrivate(id string) *fakeGraph {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.private[id] = true
	return g
}

func (g *fakeGraph) fail(id string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.failures, id)
		return
	}
	g.failures[id] = err
}

func (g *fakeGraph) count(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[key]
}

func (g *fakeGraph) totalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

func (g *fakeGraph) record(kind, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[kind+":"+id]++
	g.quota--
	if err, ok := g.failures[id]; ok {
		return err
	}
	if g.private[id] {
		return errs.Private(id)
	}
	if kind != "search" {
		if _, ok := g.profiles[id]; !ok {
			return errs.New(errs.ErrorTypeNotFound, 404, "no account %s", id)
		}
	}
	return nil
}

func (g *fakeGraph) ResolveHandle(ctx context.Context, handle string) (string, error) {
	if err := g.record("search", handle); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.handles[handle]
	if !ok {
		return "", errs.NotFound("no account with handle %q", handle)
	}
	return id, nil
}

func (g *fakeGraph) FetchProfile(ctx context.Context, id string) (*models.Profile, error) {
	if err := g.record("profile", id); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p := *g.profiles[id]
	return &p, nil
}

func (g *fakeGraph) FetchRecentPosts(ctx context.Context, id string) ([]models.Post, error) {
	if err := g.record("media", id); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]models.Post(nil), g.posts[id]...), nil
}

func (g *fakeGraph) FetchEdges(ctx context.Context, id string, dir models.Direction, cursor string) ([]string, string, error) {
	if err := g.record(string(dir), id); err != nil {
		return nil, "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	all := g.followers[id]
	if dir == models.Following {
		all = g.following[id]
	}
	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	end := start + g.pageSize
	if end >= len(all) {
		return append([]string(nil), all[start:]...), "", nil
	}
	return append([]string(nil), all[start:end]...), strconv.Itoa(end), nil
}

func (g *fakeGraph) RemainingQuota() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.quota
}

// recordingObserver captures observer callbacks
type recordingObserver struct {
	mu      sync.Mutex
	pulled  map[string]Action
	private []string
	failed  []string
	quota   []int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{pulled: make(map[string]Action)}
}

func (o *recordingObserver) AccountPulled(id string, order models.Order, action Action) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pulled[id] = action
}

func (o *recordingObserver) AccountPrivate(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.private = append(o.private, id)
}

func (o *recordingObserver) AccountFailed(id string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, id)
}

func (o *recordingObserver) QuotaRemaining(remaining int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quota = append(o.quota, remaining)
}

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(storage.MemoryPath, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// aliceGraph is the seed graph: alice (100) is followed by 200 and 300 and
// follows 400. 200 follows back and also follows 600.
func aliceGraph() *fakeGraph {
	return newFakeGraph().
		account("100", "alice", []string{"200", "300"}, []string{"400"}).
		account("200", "bob", []string{"100"}, []string{"100", "600"}).
		account("300", "carol", nil, []string{"100"}).
		account("400", "dave", []string{"100"}, []string{"900"}).
		account("600", "frank", []string{"200"}, nil).
		account("900", "ivan", []string{"400"}, nil)
}

func requireAccount(t *testing.T, s Store, id string, order models.Order, complete bool) {
	t.Helper()
	a, err := s.FindAccount(context.Background(), id)
	require.NoError(t, err, "account %s", id)
	require.Equal(t, order, a.Order, "order of %s", id)
	require.Equal(t, complete, a.Complete, "completion of %s", id)
}

func requireAbsent(t *testing.T, s Store, id string) {
	t.Helper()
	_, err := s.FindAccount(context.Background(), id)
	require.True(t, errs.IsNotFound(err), fmt.Sprintf("account %s should not be stored", id))
}
