package storage

// schema creates the crawl tables. Edges carry no foreign keys: an edge is
// stored as soon as it is listed, before (or without) the neighbor's profile.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id              TEXT PRIMARY KEY,
	handle          TEXT NOT NULL UNIQUE,
	bio             TEXT NOT NULL DEFAULT '',
	follower_count  INTEGER NOT NULL DEFAULT 0,
	following_count INTEGER NOT NULL DEFAULT 0,
	post_count      INTEGER NOT NULL DEFAULT 0,
	latitude        REAL,
	longitude       REAL,
	"order"         INTEGER NOT NULL,
	complete        INTEGER NOT NULL DEFAULT 0,
	stored_at       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_order ON accounts("order");

CREATE TABLE IF NOT EXISTS posts (
	id            TEXT PRIMARY KEY,
	account_id    TEXT NOT NULL REFERENCES accounts(id),
	like_count    INTEGER NOT NULL DEFAULT 0,
	comment_count INTEGER NOT NULL DEFAULT 0,
	caption       TEXT,
	latitude      REAL,
	longitude     REAL
);

CREATE INDEX IF NOT EXISTS idx_posts_account ON posts(account_id);

CREATE TABLE IF NOT EXISTS edges (
	account_id  TEXT NOT NULL,
	follower_id TEXT NOT NULL,
	UNIQUE (account_id, follower_id)
);

CREATE INDEX IF NOT EXISTS idx_edges_follower ON edges(follower_id);

CREATE TABLE IF NOT EXISTS crawl_runs (
	id          TEXT PRIMARY KEY,
	seed_id     TEXT NOT NULL,
	seed_handle TEXT NOT NULL DEFAULT '',
	started_at  INTEGER NOT NULL,
	finished_at INTEGER,
	status      TEXT NOT NULL,
	pulled      INTEGER NOT NULL DEFAULT 0,
	private     INTEGER NOT NULL DEFAULT 0,
	failures    INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
);
`
