package crawler

import "igcrawl/pkg/models"

// Observer is told about per-account outcomes as the crawl progresses. Calls
// may come from several goroutines when the crawl runs concurrently.
type Observer interface {
	AccountPulled(id string, order models.Order, action Action)
	AccountPrivate(id string)
	AccountFailed(id string, err error)
	QuotaRemaining(remaining int)
}

type nopObserver struct{}

func (nopObserver) AccountPulled(string, models.Order, Action) {}
func (nopObserver) AccountPrivate(string)                      {}
func (nopObserver) AccountFailed(string, error)                {}
func (nopObserver) QuotaRemaining(int)                         {}
