// Package review implements the review queue and the two-phase review
// workflow state machine.
package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Veraticus/autofiler/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store persists review queue entries in SQLite, keyed by filename
// within the review directory.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (or creates) the review queue database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("dbPath must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS review_queue (
			file_key TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			phase TEXT NOT NULL DEFAULT 'A',
			reason TEXT,
			resolved_as TEXT,
			added_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			resolved_at DATETIME
		)`)
	if err != nil {
		return fmt.Errorf("failed to migrate review queue schema: %w", err)
	}
	return nil
}

// Register adds a file to the queue as pending, or flips an existing
// entry back to pending when it is re-routed to review. Idempotent for
// already-pending entries.
func (s *Store) Register(ctx context.Context, fileKey, reason string) error {
	if fileKey == "" {
		return errors.New("fileKey must not be empty")
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_queue (file_key, status, phase, reason, added_at, updated_at)
		VALUES (?, ?, 'A', ?, ?, ?)
		ON CONFLICT(file_key) DO UPDATE SET
			status = excluded.status,
			phase = 'A',
			reason = excluded.reason,
			updated_at = excluded.updated_at
	`, fileKey, model.ReviewPending, reason, now, now)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", fileKey, err)
	}
	return nil
}

// Scan walks the review directory and registers any file not yet in the
// queue as pending. Returns pending entries, oldest first.
func (s *Store) Scan(ctx context.Context, reviewDir string) ([]model.ReviewQueueEntry, error) {
	items, err := os.ReadDir(reviewDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to scan review directory: %w", err)
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		if item.Type().IsRegular() {
			names = append(names, item.Name())
		}
	}
	sort.Strings(names)

	known, err := s.knownKeys(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if !known[name] {
			if err := s.Register(ctx, name, "found_in_review_area"); err != nil {
				return nil, err
			}
		}
	}

	return s.Pending(ctx)
}

// Pending returns entries with status pending, oldest first.
func (s *Store) Pending(ctx context.Context) ([]model.ReviewQueueEntry, error) {
	return s.query(ctx, `
		SELECT file_key, status, phase, reason, resolved_as, added_at, updated_at, resolved_at
		FROM review_queue WHERE status = ? ORDER BY added_at, file_key
	`, model.ReviewPending)
}

// Get returns one entry by file key.
func (s *Store) Get(ctx context.Context, fileKey string) (*model.ReviewQueueEntry, error) {
	entries, err := s.query(ctx, `
		SELECT file_key, status, phase, reason, resolved_as, added_at, updated_at, resolved_at
		FROM review_queue WHERE file_key = ?
	`, fileKey)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, sql.ErrNoRows
	}
	return &entries[0], nil
}

// MarkInReview transitions an entry to in_review.
func (s *Store) MarkInReview(ctx context.Context, fileKey string) error {
	return s.setStatus(ctx, fileKey, model.ReviewInReview)
}

// MarkPending returns an entry to pending (the "skip" operation).
func (s *Store) MarkPending(ctx context.Context, fileKey string) error {
	return s.setStatus(ctx, fileKey, model.ReviewPending)
}

// SetPhase records that an entry entered extraction review with the
// missing-field reason.
func (s *Store) SetPhase(ctx context.Context, fileKey string, phase model.ReviewPhase, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE review_queue SET phase = ?, reason = ?, updated_at = ? WHERE file_key = ?
	`, phase, reason, time.Now().UTC(), fileKey)
	if err != nil {
		return fmt.Errorf("failed to set phase for %s: %w", fileKey, err)
	}
	return requireRow(res, fileKey)
}

// MarkResolved finalizes an entry once its file has been staged.
func (s *Store) MarkResolved(ctx context.Context, fileKey, resolvedAs string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE review_queue SET status = ?, resolved_as = ?, resolved_at = ?, updated_at = ?
		WHERE file_key = ?
	`, model.ReviewResolved, resolvedAs, now, now, fileKey)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", fileKey, err)
	}
	return requireRow(res, fileKey)
}

// Summary returns entry counts by status.
func (s *Store) Summary(ctx context.Context) (map[model.ReviewStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM review_queue GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize queue: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := map[model.ReviewStatus]int{
		model.ReviewPending:  0,
		model.ReviewInReview: 0,
		model.ReviewResolved: 0,
	}
	for rows.Next() {
		var status model.ReviewStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (s *Store) setStatus(ctx context.Context, fileKey string, status model.ReviewStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE review_queue SET status = ?, updated_at = ? WHERE file_key = ?
	`, status, time.Now().UTC(), fileKey)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", fileKey, err)
	}
	return requireRow(res, fileKey)
}

func (s *Store) knownKeys(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_key FROM review_queue`)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	known := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan queue key: %w", err)
		}
		known[key] = true
	}
	return known, rows.Err()
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]model.ReviewQueueEntry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query review queue: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.ReviewQueueEntry
	for rows.Next() {
		var e model.ReviewQueueEntry
		var reason, resolvedAs sql.NullString
		var resolvedAt sql.NullTime
		if err := rows.Scan(&e.FileKey, &e.Status, &e.Phase, &reason, &resolvedAs, &e.AddedAt, &e.UpdatedAt, &resolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		e.Reason = reason.String
		e.ResolvedAs = resolvedAs.String
		if resolvedAt.Valid {
			t := resolvedAt.Time
			e.ResolvedAt = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func requireRow(res sql.Result, fileKey string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("review entry %s: %w", fileKey, sql.ErrNoRows)
	}
	return nil
}
