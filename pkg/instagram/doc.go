// Package instagram is the remote graph client. It resolves handles and
// fetches profiles, recent media and paginated follower/following listings
// from the v1 REST API.
//
// Calls are paced by a token bucket, retried for transient failures only and
// mapped onto the typed errors of pkg/errors. A private account surfaces as
// an error matching errors.ErrPrivateAccount:
//
//	client := instagram.NewClient(cfg, log)
//	profile, err := client.FetchProfile(ctx, "500")
//	if errs.IsPrivate(err) {
//	    // nothing readable for this account
//	}
package instagram
