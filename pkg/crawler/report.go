package crawler

import (
	"sync/atomic"
	"time"

	"igcrawl/pkg/models"
)

// Stats are the live counters of one crawl
type Stats struct {
	Pulled        atomic.Int64
	Promoted      atomic.Int64
	Resumed       atomic.Int64
	Skipped       atomic.Int64
	Private       atomic.Int64
	Unavailable   atomic.Int64
	Failures      atomic.Int64
	Conflicts     atomic.Int64
	GuardRejected atomic.Int64
	RemoteCalls   atomic.Int64
}

// Report summarizes a finished crawl
type Report struct {
	RunID          string        `json:"run_id"`
	SeedID         string        `json:"seed_id"`
	SeedHandle     string        `json:"seed_handle,omitempty"`
	Order          models.Order  `json:"order"`
	SeedComplete   bool          `json:"seed_complete"`
	Pulled         int           `json:"pulled"`
	Promoted       int           `json:"promoted"`
	Resumed        int           `json:"resumed"`
	Skipped        int           `json:"skipped"`
	Private        int           `json:"private"`
	Unavailable    int           `json:"unavailable"`
	Failures       int           `json:"failures"`
	Conflicts      int           `json:"conflicts"`
	GuardRejected  int           `json:"guard_rejected"`
	RemoteCalls    int           `json:"remote_calls"`
	RemainingQuota int           `json:"remaining_quota"`
	Duration       time.Duration `json:"duration"`
}

func (s *Stats) fill(r *Report) {
	r.Pulled = int(s.Pulled.Load())
	r.Promoted = int(s.Promoted.Load())
	r.Resumed = int(s.Resumed.Load())
	r.Skipped = int(s.Skipped.Load())
	r.Private = int(s.Private.Load())
	r.Unavailable = int(s.Unavailable.Load())
	r.Failures = int(s.Failures.Load())
	r.Conflicts = int(s.Conflicts.Load())
	r.GuardRejected = int(s.GuardRejected.Load())
	r.RemoteCalls = int(s.RemoteCalls.Load())
}

// Status classifies the crawl for the run journal
func (r *Report) Status() string {
	if r.SeedComplete && r.Failures == 0 {
		return models.RunCompleted
	}
	return models.RunPartial
}
