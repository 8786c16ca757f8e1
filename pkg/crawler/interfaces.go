package crawler

import (
	"context"

	"igcrawl/pkg/models"
)

// Store is the account store the crawler reads and writes through
type Store interface {
	FindAccount(ctx context.Context, id string) (*models.Account, error)
	UpsertAccount(ctx context.Context, p *models.Profile, order models.Order, complete bool) (*models.Account, error)
	UpdateOrder(ctx context.Context, id string, order models.Order) (bool, error)
	UpdateCompletion(ctx context.Context, id string, orderAtUpdate models.Order, complete bool) (bool, error)
	InsertPost(ctx context.Context, p models.Post) error
	InsertEdge(ctx context.Context, e models.Edge) error
	CountPosts(ctx context.Context, id string) (int, error)
	CountEdges(ctx context.Context, id string, dir models.Direction) (int, error)
	Neighbors(ctx context.Context, id string, dir models.Direction) ([]string, error)
}

// RunJournal is implemented by stores that keep a history of crawls
type RunJournal interface {
	RecordRunStart(ctx context.Context, run *models.CrawlRun) error
	RecordRunFinish(ctx context.Context, run *models.CrawlRun) error
}

// GraphClient is the remote side of the crawl
type GraphClient interface {
	ResolveHandle(ctx context.Context, handle string) (string, error)
	FetchProfile(ctx context.Context, id string) (*models.Profile, error)
	FetchRecentPosts(ctx context.Context, id string) ([]models.Post, error)
	FetchEdges(ctx context.Context, id string, dir models.Direction, cursor string) ([]string, string, error)
	RemainingQuota() int
}
