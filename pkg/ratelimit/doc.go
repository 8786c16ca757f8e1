// Package ratelimit paces calls to the graph API and tracks the remaining
// per-token budget the API reports.
//
// Pacing uses golang.org/x/time/rate; NewHourly converts an hourly budget
// into a steady rate with a small burst. Quota mirrors the
// X-Ratelimit-Remaining header so callers can surface it to whatever policy
// decides when to pause a crawl.
package ratelimit
