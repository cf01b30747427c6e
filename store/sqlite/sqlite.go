/*
Package sqlite provides a SQLite-backed implementation of store.Archive.

PURPOSE:
  Persists generation runs durably. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  schedules: One row per generation run, holding the raw request and
             result JSON.

INDEXES:
  idx_schedules_policy: Per-policy history lookups (hot path)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  archive, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer archive.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - store/store.go: Archive interface and in-memory implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/billing-engine/store"
)

// Store implements store.Archive using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite archive with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		policy_locator TEXT NOT NULL,
		schedule_name TEXT NOT NULL,
		operation TEXT NOT NULL,
		request_json TEXT NOT NULL,
		result_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_schedules_policy
		ON schedules(policy_locator, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSchedule archives a generation run.
func (s *Store) SaveSchedule(ctx context.Context, rec store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO schedules
		(id, policy_locator, schedule_name, operation, request_json, result_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			result_json = excluded.result_json,
			created_at = excluded.created_at
	`

	createdAt := rec.CreatedAt
	if createdAt.IsZero() { createdAt = time.Now().UTC() }

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.PolicyLocator, rec.ScheduleName, rec.Operation,
		rec.RequestJSON, rec.ResultJSON,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	return nil
}

// GetSchedule returns a record by ID, or nil if not found.
func (s *Store) GetSchedule(ctx context.Context, id string) (*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec store.Record
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, policy_locator, schedule_name, operation, request_json, result_json, created_at
		 FROM schedules WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.PolicyLocator, &rec.ScheduleName, &rec.Operation,
		&rec.RequestJSON, &rec.ResultJSON, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}

	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &rec, nil
}

// ListSchedulesByPolicy returns a policy's records, newest first.
func (s *Store) ListSchedulesByPolicy(ctx context.Context, policyLocator string) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, policy_locator, schedule_name, operation, request_json, result_json, created_at
		 FROM schedules
		 WHERE policy_locator = ?
		 ORDER BY created_at DESC`,
		policyLocator,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		var rec store.Record
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.PolicyLocator, &rec.ScheduleName, &rec.Operation,
			&rec.RequestJSON, &rec.ResultJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}
