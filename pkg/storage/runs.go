package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"igcrawl/pkg/models"
)

// RecordRunStart journals the start of a crawl
func (s *Store) RecordRunStart(ctx context.Context, run *models.CrawlRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now().UTC()
	}
	if run.Status == "" {
		run.Status = models.RunRunning
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crawl_runs (id, seed_id, seed_handle, started_at, status)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.SeedID, run.SeedHandle, run.StartedAt.UnixMilli(), run.Status)
	if err != nil {
		return fmt.Errorf("failed to record start of run %s: %w", run.ID, err)
	}
	return nil
}

// RecordRunFinish stores the outcome of a crawl
func (s *Store) RecordRunFinish(ctx context.Context, run *models.CrawlRun) error {
	if run.FinishedAt == nil {
		now := s.now().UTC()
		run.FinishedAt = &now
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE crawl_runs
		SET seed_id = ?, finished_at = ?, status = ?, pulled = ?, private = ?, failures = ?, error = ?
		WHERE id = ?`,
		run.SeedID, run.FinishedAt.UnixMilli(), run.Status, run.Pulled, run.Private, run.Failures, run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("failed to record finish of run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.CrawlRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seed_id, seed_handle, started_at, finished_at, status, pulled, private, failures, error
		FROM crawl_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.CrawlRun
	for rows.Next() {
		var (
			r        models.CrawlRun
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.SeedID, &r.SeedHandle, &started, &finished,
			&r.Status, &r.Pulled, &r.Private, &r.Failures, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		if finished.Valid {
			t := time.UnixMilli(finished.Int64).UTC()
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
