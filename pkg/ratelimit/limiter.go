package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outgoing API calls
type Limiter interface {
	// Allow reports whether a call may proceed right now
	Allow() bool
	// Wait blocks until a call may proceed or ctx is done
	Wait(ctx context.Context) error
}

// NewHourly returns a limiter spreading requestsPerHour evenly over the hour
// with the given burst.
func NewHourly(requestsPerHour, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Hour/time.Duration(requestsPerHour)), burst)
}

// Unlimited returns a limiter that never blocks
func Unlimited() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// Quota tracks the remaining call budget reported by the API. The value only
// ever goes down within a window; a higher value is accepted only once the
// reported reset time has passed.
type Quota struct {
	mu        sync.Mutex
	limit     int
	remaining int
	resetAt   time.Time
	now       func() time.Time
}

// NewQuota creates a quota that reports limit until the API says otherwise
func NewQuota(limit int) *Quota {
	return &Quota{limit: limit, remaining: limit, now: time.Now}
}

// Remaining returns the last known number of calls left in the window
func (q *Quota) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remaining
}

// Limit returns the window size reported by the API
func (q *Quota) Limit() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.limit
}

// Update records a reported remaining count. Inside one window values above
// the current one are ignored, so concurrent responses arriving out of order
// cannot make the quota go back up. The first report opens a one hour window.
func (q *Quota) Update(remaining int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if remaining < 0 {
		return
	}
	now := q.now()
	if q.resetAt.IsZero() || now.After(q.resetAt) {
		q.remaining = remaining
		q.resetAt = now.Add(time.Hour)
		return
	}
	if remaining < q.remaining {
		q.remaining = remaining
	}
}

// UpdateFromHeaders reads X-Ratelimit-Limit and X-Ratelimit-Remaining
func (q *Quota) UpdateFromHeaders(get func(string) string) {
	if v, err := strconv.Atoi(get("X-Ratelimit-Limit")); err == nil && v > 0 {
		q.mu.Lock()
		q.limit = v
		q.mu.Unlock()
	}
	if v, err := strconv.Atoi(get("X-Ratelimit-Remaining")); err == nil {
		q.Update(v)
	}
}
