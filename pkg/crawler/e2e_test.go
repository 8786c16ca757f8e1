package crawler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igcrawl/pkg/config"
	"igcrawl/pkg/crawler"
	"igcrawl/pkg/instagram"
	"igcrawl/pkg/logger"
	"igcrawl/pkg/models"
	"igcrawl/pkg/ratelimit"
	"igcrawl/pkg/retry"
	"igcrawl/pkg/storage"
)

type apiAccount struct {
	user      instagram.User
	followers []string
	following []string
	private   bool
}

// apiServer serves a small follow graph over the v1 envelope format
type apiServer struct {
	mu       sync.Mutex
	accounts map[string]*apiAccount
	hits     map[string]int
	flaky    map[string]int
}

func newAPIServer() *apiServer {
	return &apiServer{
		accounts: make(map[string]*apiAccount),
		hits:     make(map[string]int),
		flaky:    make(map[string]int),
	}
}

func (s *apiServer) add(id, handle string, followers, following []string) *apiAccount {
	a := &apiAccount{
		user: instagram.User{
			ID:       id,
			Username: handle,
			Counts:   &instagram.Counts{Media: 1, Follows: len(following), FollowedBy: len(followers)},
		},
		followers: followers,
		following: following,
	}
	s.accounts[id] = a
	return a
}

func (s *apiServer) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *apiServer) write(w http.ResponseWriter, status int, meta instagram.Meta, data interface{}, page *instagram.Pagination) {
	raw, _ := json.Marshal(data)
	meta.Code = status
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Ratelimit-Remaining", "4321")
	w.Header().Set("X-Ratelimit-Limit", "5000")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(instagram.Envelope{Meta: meta, Data: raw, Pagination: page})
}

func (s *apiServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits[r.URL.Path]++

	if n := s.flaky[r.URL.Path]; n > 0 {
		s.flaky[r.URL.Path] = n - 1
		s.write(w, http.StatusServiceUnavailable, instagram.Meta{ErrorMessage: "try later"}, nil, nil)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if parts[0] == "search" {
		var users []instagram.User
		for _, a := range s.accounts {
			if strings.Contains(a.user.Username, r.URL.Query().Get("q")) {
				users = append(users, a.user)
			}
		}
		s.write(w, http.StatusOK, instagram.Meta{}, users, nil)
		return
	}

	a, ok := s.accounts[parts[0]]
	if !ok {
		s.write(w, http.StatusNotFound, instagram.Meta{ErrorType: "APINotFoundError", ErrorMessage: "user not found"}, nil, nil)
		return
	}
	if len(parts) == 1 {
		s.write(w, http.StatusOK, instagram.Meta{}, a.user, nil)
		return
	}
	if a.private {
		s.write(w, http.StatusBadRequest, instagram.Meta{ErrorType: instagram.ErrorTypeNotAllowed, ErrorMessage: "you cannot view this resource"}, nil, nil)
		return
	}

	switch strings.Join(parts[1:], "/") {
	case "media/recent":
		s.write(w, http.StatusOK, instagram.Meta{}, []instagram.Media{{
			ID:    a.user.ID + "_1",
			Likes: instagram.Count{Count: 7},
		}}, nil)
	case "followed-by":
		s.writeEdges(w, r, a.followers)
	case "follows":
		s.writeEdges(w, r, a.following)
	default:
		s.write(w, http.StatusNotFound, instagram.Meta{ErrorMessage: "no route"}, nil, nil)
	}
}

// writeEdges pages through ids one entry at a time
func (s *apiServer) writeEdges(w http.ResponseWriter, r *http.Request, ids []string) {
	start, _ := strconv.Atoi(r.URL.Query().Get("cursor"))
	if start >= len(ids) {
		s.write(w, http.StatusOK, instagram.Meta{}, []instagram.User{}, nil)
		return
	}
	users := []instagram.User{{ID: ids[start]}}
	var page *instagram.Pagination
	if start+1 < len(ids) {
		page = &instagram.Pagination{NextCursor: strconv.Itoa(start + 1)}
	}
	s.write(w, http.StatusOK, instagram.Meta{}, users, page)
}

func newE2E(t *testing.T, api *apiServer) (*crawler.Crawler, *storage.Store) {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Instagram.BaseURL = srv.URL
	cfg.Instagram.AccessToken = "e2e-token"
	cfg.Crawl.Concurrency = 3

	log := logger.NewNopLogger()
	policy := &retry.Policy{
		MaxAttempts: 3,
		Backoff:     &retry.Exponential{Base: time.Millisecond, Max: 2 * time.Millisecond, Multiplier: 1},
		Logger:      log,
	}
	client := instagram.NewClient(cfg, log, instagram.WithLimiter(ratelimit.Unlimited()), instagram.WithRetryPolicy(policy))

	store, err := storage.Open(storage.MemoryPath, log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return crawler.New(store, client, &cfg.Crawl, log), store
}

func TestEndToEndCrawl(t *testing.T) {
	api := newAPIServer()
	api.add("100", "alice", []string{"200", "300"}, []string{"400"})
	api.add("200", "bob", []string{"100"}, []string{"100", "600"})
	api.add("300", "carol", nil, []string{"100"})
	api.add("400", "dave", []string{"100"}, []string{"900"})
	api.add("600", "frank", []string{"200"}, nil)
	api.add("900", "ivan", []string{"400"}, nil)
	api.add("300", "carol", nil, []string{"100"}).private = true
	api.flaky["/v1/users/400"] = 1

	c, store := newE2E(t, api)
	ctx := context.Background()

	report, err := c.CrawlHandle(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "100", report.SeedID)
	assert.True(t, report.SeedComplete)
	assert.Equal(t, 1, report.Private)
	assert.Zero(t, report.Failures)
	assert.Equal(t, 4321, report.RemainingQuota)

	want := map[string]models.Order{
		"100": models.OrderInfluencer,
		"200": models.OrderTarget,
		"300": models.OrderTarget,
		"400": models.OrderCandidate,
		"600": models.OrderCandidate,
	}
	for id, order := range want {
		acct, err := store.FindAccount(ctx, id)
		require.NoError(t, err, id)
		assert.Equal(t, order, acct.Order, id)
	}

	carol, err := store.FindAccount(ctx, "300")
	require.NoError(t, err)
	assert.False(t, carol.Complete, "a private account stays incomplete")

	_, err = store.FindAccount(ctx, "900")
	require.Error(t, err)
	assert.Zero(t, api.hitCount("/v1/users/900"))
	assert.Zero(t, api.hitCount("/v1/users/400/follows"))
	assert.Equal(t, 2, api.hitCount("/v1/users/400"), "one retry after a 503")

	followers, err := store.Neighbors(ctx, "100", models.Followers)
	require.NoError(t, err)
	assert.Equal(t, []string{"200", "300"}, followers)

	posts, err := store.CountPosts(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, 1, posts)

	runs, err := store.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunCompleted, runs[0].Status)
	assert.Equal(t, "alice", runs[0].SeedHandle)

	report, err = c.CrawlHandle(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, report.Pulled)
	assert.Equal(t, 1, api.hitCount("/v1/users/100"), "a finished account is not fetched again")
}
