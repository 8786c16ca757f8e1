package models

import (
	"fmt"
	"time"
)

// Order is the hop distance of an account from the seed that reached it.
// Lower values are more important.
type Order int

const (
	// OrderInfluencer is a primary pull target (the seed itself)
	OrderInfluencer Order = 1
	// OrderTarget is reached through an influencer's followers
	OrderTarget Order = 2
	// OrderCandidate is reached through someone's following list and is a leaf
	OrderCandidate Order = 3

	// MaxOrder is the deepest order the crawler ever assigns
	MaxOrder = OrderCandidate
)

// Valid reports whether o is one of the three crawl orders
func (o Order) Valid() bool {
	return o >= OrderInfluencer && o <= MaxOrder
}

// MoreImportantThan reports whether o takes precedence over other
func (o Order) MoreImportantThan(other Order) bool {
	return o < other
}

func (o Order) String() string {
	switch o {
	case OrderInfluencer:
		return "influencer"
	case OrderTarget:
		return "target"
	case OrderCandidate:
		return "candidate"
	default:
		return fmt.Sprintf("order(%d)", int(o))
	}
}

// Direction selects which side of the follow graph an edge query looks at
type Direction string

const (
	// Followers are accounts that follow the subject
	Followers Direction = "followers"
	// Following are accounts the subject follows
	Following Direction = "following"
)

// ParseDirection converts user input into a Direction
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Followers, Following:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("unknown edge direction: %q", s)
	}
}

// Location is an optional latitude/longitude pair
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Profile is the remote view of an account as returned by the graph API
type Profile struct {
	ID             string    `json:"id"`
	Handle         string    `json:"handle"`
	Bio            string    `json:"bio"`
	FollowerCount  int       `json:"follower_count"`
	FollowingCount int       `json:"following_count"`
	PostCount      int       `json:"post_count"`
	Location       *Location `json:"location,omitempty"`
}

// Account is a stored profile plus its crawl state
type Account struct {
	Profile
	Order    Order     `json:"order"`
	Complete bool      `json:"complete"`
	StoredAt time.Time `json:"stored_at"`
}

// StatedCount returns the profile's advertised edge count for a direction
func (a *Account) StatedCount(dir Direction) int {
	if dir == Followers {
		return a.FollowerCount
	}
	return a.FollowingCount
}

// Post is one recent media item of an account
type Post struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	Caption      *string   `json:"caption,omitempty"`
	Location     *Location `json:"location,omitempty"`
}

// Edge means FollowerID follows AccountID
type Edge struct {
	AccountID  string `json:"account_id"`
	FollowerID string `json:"follower_id"`
}

// EdgeFor builds the stored edge between subject and a neighbor seen while
// listing subject's edges in the given direction.
func EdgeFor(subject, neighbor string, dir Direction) Edge {
	if dir == Followers {
		return Edge{AccountID: subject, FollowerID: neighbor}
	}
	return Edge{AccountID: neighbor, FollowerID: subject}
}

// CrawlRun is the journal entry for one seeded crawl
type CrawlRun struct {
	ID         string     `json:"id"`
	SeedID     string     `json:"seed_id"`
	SeedHandle string     `json:"seed_handle,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     string     `json:"status"`
	Pulled     int        `json:"pulled"`
	Private    int        `json:"private"`
	Failures   int        `json:"failures"`
	Error      string     `json:"error,omitempty"`
}

// Run statuses
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunPartial   = "partial"
	RunFailed    = "failed"
)
