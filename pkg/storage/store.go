package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	errs "igcrawl/pkg/errors"
	"igcrawl/pkg/logger"
	"igcrawl/pkg/models"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// Store is the account store backed by SQLite
type Store struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema
func Open(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == MemoryPath {
		// every connection would get its own empty database otherwise
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	log.DebugWithFields("account store opened", map[string]interface{}{
		"path": path,
	})

	return &Store{db: db, logger: log, now: time.Now}, nil
}

func dsn(path string) string {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(10000)",
	}
	if path != MemoryPath {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)", "_pragma=synchronous(NORMAL)")
	}
	return path + "?" + strings.Join(pragmas, "&")
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

const accountColumns = `id, handle, bio, follower_count, following_count, post_count,
	latitude, longitude, "order", complete, stored_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row scanner) (*models.Account, error) {
	var (
		a        models.Account
		lat, lon sql.NullFloat64
		order    int
		complete int
		storedAt int64
	)
	err := row.Scan(&a.ID, &a.Handle, &a.Bio, &a.FollowerCount, &a.FollowingCount, &a.PostCount,
		&lat, &lon, &order, &complete, &storedAt)
	if err != nil {
		return nil, err
	}
	a.Location = location(lat, lon)
	a.Order = models.Order(order)
	a.Complete = complete != 0
	a.StoredAt = time.UnixMilli(storedAt).UTC()
	return &a, nil
}

// FindAccount returns the stored account or a not_found error
func (s *Store) FindAccount(ctx context.Context, id string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("account %s not stored", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", id, err)
	}
	return a, nil
}

// FindAccountByHandle looks an account up by its handle (case-insensitive)
func (s *Store) FindAccountByHandle(ctx context.Context, handle string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE handle = ? COLLATE NOCASE`, handle)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("no stored account with handle %q", handle)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find handle %q: %w", handle, err)
	}
	return a, nil
}

// UpsertAccount stores a fetched profile. A new row gets order and complete
// as given. An existing row has its profile fields refreshed and keeps the
// more important of the two orders; its completion is reset only when the
// order is lowered. A handle already held by a different account yields a
// conflict error.
func (s *Store) UpsertAccount(ctx context.Context, p *models.Profile, order models.Order, complete bool) (*models.Account, error) {
	if p == nil || p.ID == "" {
		return nil, fmt.Errorf("upsert account: empty profile")
	}
	if !order.Valid() {
		return nil, fmt.Errorf("upsert account %s: invalid order %d", p.ID, order)
	}

	var lat, lon sql.NullFloat64
	if p.Location != nil {
		lat = sql.NullFloat64{Float64: p.Location.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: p.Location.Longitude, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			handle          = excluded.handle,
			bio             = excluded.bio,
			follower_count  = excluded.follower_count,
			following_count = excluded.following_count,
			post_count      = excluded.post_count,
			latitude        = excluded.latitude,
			longitude       = excluded.longitude,
			complete        = CASE WHEN excluded."order" < accounts."order" THEN 0 ELSE accounts.complete END,
			"order"         = MIN(accounts."order", excluded."order")`,
		p.ID, p.Handle, p.Bio, p.FollowerCount, p.FollowingCount, p.PostCount,
		lat, lon, int(order), boolInt(complete), s.now().UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errs.Conflict(err, "account %s: handle %q already stored", p.ID, p.Handle)
		}
		return nil, fmt.Errorf("failed to upsert account %s: %w", p.ID, err)
	}

	return s.FindAccount(ctx, p.ID)
}

// UpdateOrder promotes an account to a more important order and resets its
// completion. It reports false, without error, when the stored order is
// already equal or more important.
func (s *Store) UpdateOrder(ctx context.Context, id string, order models.Order) (bool, error) {
	if !order.Valid() {
		return false, fmt.Errorf("update order of %s: invalid order %d", id, order)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET "order" = ?, complete = 0 WHERE id = ? AND "order" > ?`,
		int(order), id, int(order))
	if err != nil {
		return false, fmt.Errorf("failed to update order of %s: %w", id, err)
	}
	return applied(res)
}

// UpdateCompletion sets the completion flag only if orderAtUpdate is not less
// important than the stored order. A stale branch running at a higher order
// therefore cannot touch the flag of an account promoted in the meantime; the
// guard failing is reported as false, not as an error.
func (s *Store) UpdateCompletion(ctx context.Context, id string, orderAtUpdate models.Order, complete bool) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET complete = ? WHERE id = ? AND ? <= "order"`,
		boolInt(complete), id, int(orderAtUpdate))
	if err != nil {
		return false, fmt.Errorf("failed to update completion of %s: %w", id, err)
	}
	return applied(res)
}

// InsertPost stores a post. Posts are immutable: a duplicate ID yields a
// conflict error and leaves the stored row untouched.
func (s *Store) InsertPost(ctx context.Context, p models.Post) error {
	var caption sql.NullString
	if p.Caption != nil {
		caption = sql.NullString{String: *p.Caption, Valid: true}
	}
	var lat, lon sql.NullFloat64
	if p.Location != nil {
		lat = sql.NullFloat64{Float64: p.Location.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: p.Location.Longitude, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, account_id, like_count, comment_count, caption, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.AccountID, p.LikeCount, p.CommentCount, caption, lat, lon)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.Conflict(err, "post %s already stored", p.ID)
		}
		return fmt.Errorf("failed to insert post %s: %w", p.ID, err)
	}
	return nil
}

// InsertEdge stores a follow edge; a duplicate pair yields a conflict error
func (s *Store) InsertEdge(ctx context.Context, e models.Edge) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO edges (account_id, follower_id) VALUES (?, ?)`, e.AccountID, e.FollowerID)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.Conflict(err, "edge %s<-%s already stored", e.AccountID, e.FollowerID)
		}
		return fmt.Errorf("failed to insert edge %s<-%s: %w", e.AccountID, e.FollowerID, err)
	}
	return nil
}

// CountPosts returns the number of stored posts of an account
func (s *Store) CountPosts(ctx context.Context, id string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE account_id = ?`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts of %s: %w", id, err)
	}
	return n, nil
}

// edgeColumns returns the column matching the subject and the one holding the
// neighbor for a direction.
func edgeColumns(dir models.Direction) (subject, neighbor string) {
	if dir == models.Followers {
		return "account_id", "follower_id"
	}
	return "follower_id", "account_id"
}

// CountEdges returns how many edges are stored for id in dir
func (s *Store) CountEdges(ctx context.Context, id string, dir models.Direction) (int, error) {
	subject, _ := edgeColumns(dir)
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges WHERE `+subject+` = ?`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s of %s: %w", dir, id, err)
	}
	return n, nil
}

// Neighbors returns the IDs on the other end of id's stored edges in dir,
// in insertion order.
func (s *Store) Neighbors(ctx context.Context, id string, dir models.Direction) ([]string, error) {
	subject, neighbor := edgeColumns(dir)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+neighbor+` FROM edges WHERE `+subject+` = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s of %s: %w", dir, id, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan %s of %s: %w", dir, id, err)
		}
		ids = append(ids, n)
	}
	return ids, rows.Err()
}

// CountAccountsByOrder returns the number of stored accounts per order
func (s *Store) CountAccountsByOrder(ctx context.Context) (map[models.Order]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT "order", COUNT(*) FROM accounts GROUP BY "order"`)
	if err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Order]int)
	for rows.Next() {
		var order, n int
		if err := rows.Scan(&order, &n); err != nil {
			return nil, fmt.Errorf("failed to scan account count: %w", err)
		}
		counts[models.Order(order)] = n
	}
	return counts, rows.Err()
}

func applied(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY violation
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func location(lat, lon sql.NullFloat64) *models.Location {
	if !lat.Valid || !lon.Valid {
		return nil
	}
	return &models.Location{Latitude: lat.Float64, Longitude: lon.Float64}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
