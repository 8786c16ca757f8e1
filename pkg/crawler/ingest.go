package crawler

import (
	"context"
	"fmt"
	"math"

	errs "igcrawl/pkg/errors"
	"igcrawl/pkg/logger"
	"igcrawl/pkg/metrics"
	"igcrawl/pkg/models"
)

// DefaultEdgeTolerance is the relative gap between stored and stated edge
// counts under which an edge list counts as synced.
const DefaultEdgeTolerance = 0.10

// Outcome is what an ingestion operation did
type Outcome int

const (
	// Skipped means the store already held enough data; no remote call
	Skipped Outcome = iota
	// Fetched means data was fetched and stored
	Fetched
	// Private means the remote denied access; stored data is untouched
	Private
	// Unavailable means the profile could not be stored: the account is
	// gone or its handle is held by another stored account
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Fetched:
		return "fetched"
	case Private:
		return "private"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Ingester runs the idempotent fetch-and-store operations. Each one checks
// the store first and only calls the graph client when data is missing.
type Ingester struct {
	store     Store
	client    GraphClient
	tolerance float64
	maxPages  int
	stats     *Stats
	logger    logger.Logger
}

// NewIngester creates an Ingester. A negative tolerance selects
// DefaultEdgeTolerance; maxPages <= 0 pages through every edge.
func NewIngester(store Store, client GraphClient, tolerance float64, maxPages int, stats *Stats, log logger.Logger) *Ingester {
	if tolerance < 0 {
		tolerance = DefaultEdgeTolerance
	}
	if stats == nil {
		stats = &Stats{}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Ingester{
		store:     store,
		client:    client,
		tolerance: tolerance,
		maxPages:  maxPages,
		stats:     stats,
		logger:    log,
	}
}

// EnsureProfile makes sure accountID is stored. A new account is stored at
// order with completion false; an existing one is returned as is.
func (in *Ingester) EnsureProfile(ctx context.Context, accountID string, order models.Order) (*models.Account, Outcome, error) {
	acct, err := in.store.FindAccount(ctx, accountID)
	if err == nil {
		return acct, Skipped, nil
	}
	if !errs.IsNotFound(err) {
		return nil, Skipped, err
	}

	in.stats.RemoteCalls.Add(1)
	profile, err := in.client.FetchProfile(ctx, accountID)
	if err != nil {
		if errs.IsPrivate(err) {
			logger.LogPrivateSkip(in.logger, accountID, StepProfile.String())
			return nil, Private, nil
		}
		if errs.IsNotFound(err) {
			in.logger.WarnWithFields("Account no longer exists", map[string]interface{}{
				"account_id": accountID,
			})
			return nil, Unavailable, nil
		}
		return nil, Skipped, fmt.Errorf("fetch profile %s: %w", accountID, err)
	}
	if profile.ID == "" {
		profile.ID = accountID
	}

	acct, err = in.store.UpsertAccount(ctx, profile, order, false)
	if err == nil {
		return acct, Fetched, nil
	}
	if !errs.IsConflict(err) {
		return nil, Skipped, err
	}

	in.conflict("account", accountID)
	acct, err = in.store.FindAccount(ctx, accountID)
	if err == nil {
		return acct, Skipped, nil
	}
	if errs.IsNotFound(err) {
		in.logger.WarnWithFields("Account handle held by another stored account", map[string]interface{}{
			"account_id": accountID,
			"handle":     profile.Handle,
		})
		return nil, Unavailable, nil
	}
	return nil, Skipped, err
}

// EnsureMedia stores the recent posts of an account that has none stored.
// Existing posts are never refreshed.
func (in *Ingester) EnsureMedia(ctx context.Context, accountID string) (Outcome, error) {
	n, err := in.store.CountPosts(ctx, accountID)
	if err != nil {
		return Skipped, err
	}
	if n > 0 {
		return Skipped, nil
	}

	in.stats.RemoteCalls.Add(1)
	posts, err := in.client.FetchRecentPosts(ctx, accountID)
	if err != nil {
		if errs.IsPrivate(err) {
			logger.LogPrivateSkip(in.logger, accountID, StepMedia.String())
			return Private, nil
		}
		return Skipped, fmt.Errorf("fetch media %s: %w", accountID, err)
	}

	for _, p := range posts {
		p.AccountID = accountID
		if err := in.store.InsertPost(ctx, p); err != nil {
			if errs.IsConflict(err) {
				in.conflict("post", p.ID)
				continue
			}
			return Skipped, err
		}
	}

	in.logger.DebugWithFields("Stored recent media", map[string]interface{}{
		"account_id": accountID,
		"posts":      len(posts),
	})
	return Fetched, nil
}

// EnsureFollowers syncs the follower edges of acct
func (in *Ingester) EnsureFollowers(ctx context.Context, acct *models.Account) (Outcome, error) {
	return in.ensureEdges(ctx, acct, models.Followers)
}

// EnsureFollowing syncs the following edges of acct
func (in *Ingester) EnsureFollowing(ctx context.Context, acct *models.Account) (Outcome, error) {
	return in.ensureEdges(ctx, acct, models.Following)
}

func (in *Ingester) ensureEdges(ctx context.Context, acct *models.Account, dir models.Direction) (Outcome, error) {
	stored, err := in.store.CountEdges(ctx, acct.ID, dir)
	if err != nil {
		return Skipped, err
	}
	stated := acct.StatedCount(dir)
	if Synced(stored, stated, in.tolerance) {
		in.logger.DebugWithFields("Edges already synced", map[string]interface{}{
			"account_id": acct.ID,
			"direction":  string(dir),
			"stored":     stored,
			"stated":     stated,
		})
		return Skipped, nil
	}

	var (
		cursor   string
		pages    int
		inserted int
	)
	for {
		in.stats.RemoteCalls.Add(1)
		ids, next, err := in.client.FetchEdges(ctx, acct.ID, dir, cursor)
		if err != nil {
			if errs.IsPrivate(err) {
				logger.LogPrivateSkip(in.logger, acct.ID, string(dir))
				return Private, nil
			}
			return Skipped, fmt.Errorf("fetch %s of %s: %w", dir, acct.ID, err)
		}

		for _, id := range ids {
			edge := models.EdgeFor(acct.ID, id, dir)
			if err := in.store.InsertEdge(ctx, edge); err != nil {
				if errs.IsConflict(err) {
					in.conflict("edge", edge.AccountID+"<-"+edge.FollowerID)
					continue
				}
				return Skipped, err
			}
			inserted++
		}

		pages++
		if next == "" {
			break
		}
		if in.maxPages > 0 && pages >= in.maxPages {
			in.logger.WarnWithFields("Edge page limit reached", map[string]interface{}{
				"account_id": acct.ID,
				"direction":  string(dir),
				"pages":      pages,
			})
			break
		}
		cursor = next
	}

	in.logger.DebugWithFields("Stored edges", map[string]interface{}{
		"account_id": acct.ID,
		"direction":  string(dir),
		"inserted":   inserted,
		"pages":      pages,
	})
	return Fetched, nil
}

func (in *Ingester) conflict(entity, key string) {
	in.stats.Conflicts.Add(1)
	metrics.IncConflict(entity)
	logger.LogConflict(in.logger, entity, key)
}

// Synced reports whether stored is within tolerance of the stated count. A
// stated count of zero is always synced.
func Synced(stored, stated int, tolerance float64) bool {
	if stated <= 0 {
		return true
	}
	return math.Abs(float64(stored-stated)) <= tolerance*float64(stated)
}
