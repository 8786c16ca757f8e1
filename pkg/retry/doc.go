// Package retry implements the transport retry policy used by the graph
// client. The crawl controller itself never retries; a failed account is
// left incomplete and picked up again by the next run.
package retry
