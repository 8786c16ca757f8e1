// Package storage is the account store: accounts with their crawl order and
// completion flag, their recent posts, and follow edges, kept in SQLite.
//
// Inserts of posts and edges are never updates. A duplicate is rejected with
// an error matching errors.ErrConflict, which callers treat as "already
// stored". Order only ever moves toward more important values, and the
// completion write is guarded by the order it was computed for:
//
//	store, err := storage.Open("instagram.sqlite", log)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	applied, err := store.UpdateCompletion(ctx, "100", models.OrderTarget, true)
//	// applied is false if "100" was promoted to order 1 meanwhile
package storage
