// Package history persists a record of every served search to SQLite.
// Recording is best effort: the orchestrator logs and continues when a
// write fails, and the store is absent entirely when no database path is
// configured.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS searches (
	id           TEXT PRIMARY KEY,
	keywords     TEXT NOT NULL,
	result_count INTEGER NOT NULL,
	data_source  TEXT NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at DESC);
`

type Entry struct {
	ID          string    `db:"id" json:"id"`
	Keywords    string    `db:"keywords" json:"keywords"`
	ResultCount int       `db:"result_count" json:"resultCount"`
	DataSource  string    `db:"data_source" json:"dataSource"`
	CreatedAt   time.Time `db:"-" json:"createdAt"`

	CreatedAtRaw string `db:"created_at" json:"-"`
}

type Store struct {
	db    *sqlx.DB
	clock func() time.Time
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, clock: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// WithClock overrides the timestamp source. Test hook.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

// Record implements search.Recorder.
func (s *Store) Record(ctx context.Context, keywords string, resultCount int, dataSource string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO searches (id, keywords, result_count, data_source, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), keywords, resultCount, dataSource, s.clock().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert search: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []Entry
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, keywords, result_count, data_source, created_at FROM searches ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select searches: %w", err)
	}
	for i := range rows {
		if ts, err := time.Parse(time.RFC3339, rows[i].CreatedAtRaw); err == nil {
			rows[i].CreatedAt = ts
		}
	}
	return rows, nil
}
