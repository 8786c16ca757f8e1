// Package crawler pulls a bounded neighborhood of the follow graph into the
// account store.
//
// Every account carries an order: 1 for influencers (crawl seeds), 2 for
// targets reached through an influencer's followers, 3 for candidates reached
// through anyone's following list. The plan of an order decides which
// ingestion steps run and which neighbors are visited next:
//
//	order 1: profile, media, followers, following; followers -> 2, following -> 3
//	order 2: profile, media, following;            following -> 3
//	order 3: profile, media
//
// Re-running a crawl converges instead of refetching. Ingestion operations
// skip data the store already holds, complete accounts are left alone, an
// account reached at a more important order is promoted and only runs the
// steps its old order did not cover, and an account is marked complete only
// after its own steps and its neighbors' subtrees finished.
package crawler
