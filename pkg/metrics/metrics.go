package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AccountsPulled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "igcrawl_accounts_pulled_total",
		Help: "Accounts whose pull plan ran, by order and plan",
	}, []string{"order", "plan"})
	PrivateSkips = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "igcrawl_private_skips_total",
		Help: "Accounts skipped because their content is private",
	})
	SubtreeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "igcrawl_subtree_failures_total",
		Help: "Account subtrees abandoned after a fatal remote error",
	})
	StoreConflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "igcrawl_store_conflicts_total",
		Help: "Inserts rejected by a uniqueness constraint",
	}, []string{"entity"})
	RemoteCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "igcrawl_remote_calls_total",
		Help: "Graph API calls by endpoint and outcome",
	}, []string{"endpoint", "outcome"})
	RemoteRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "igcrawl_remote_retries_total",
		Help: "Graph API retry attempts",
	}, []string{"endpoint"})
	QuotaRemaining = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "igcrawl_remote_quota_remaining",
		Help: "Calls left in the current API rate limit window",
	})
	PullDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "igcrawl_pull_duration_seconds",
		Help:    "Time spent on one account's own pull steps",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		AccountsPulled,
		PrivateSkips,
		SubtreeFailures,
		StoreConflicts,
		RemoteCalls,
		RemoteRetries,
		QuotaRemaining,
		PullDuration,
	)
}

// StartServer serves /metrics and /health on addr in the background. It
// returns nil when addr is empty.
func StartServer(addr string) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

// ObservePull records the duration of one account pull
func ObservePull(start time.Time) {
	PullDuration.Observe(time.Since(start).Seconds())
}

// IncPulled counts an account pull at order with the chosen plan
func IncPulled(order int, plan string) {
	AccountsPulled.WithLabelValues(orderLabel(order), plan).Inc()
}

// IncConflict counts a rejected duplicate insert of entity
func IncConflict(entity string) { StoreConflicts.WithLabelValues(entity).Inc() }

// IncRemoteCall counts one API call outcome ("ok" or an error type)
func IncRemoteCall(endpoint, outcome string) {
	RemoteCalls.WithLabelValues(endpoint, outcome).Inc()
}

// IncRetry counts a retry attempt against endpoint
func IncRetry(endpoint string) { RemoteRetries.WithLabelValues(endpoint).Inc() }

// SetQuota exports the remaining API quota
func SetQuota(remaining int) { QuotaRemaining.Set(float64(remaining)) }

func orderLabel(order int) string {
	switch order {
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3"
	default:
		return "other"
	}
}
