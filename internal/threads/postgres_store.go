package threads

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps threads in a single table, messages as JSONB.
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

// NewPostgresStore connects to dsn and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres thread store requires a database url")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect thread store: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS threads (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL DEFAULT '',
  messages JSONB NOT NULL DEFAULT '[]',
  ts TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_threads_ts ON threads (ts DESC);
`)
	})
	return s.schemaErr
}

// Save upserts t.
func (s *PostgresStore) Save(ctx context.Context, t Thread) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	if !validID(t.ID) {
		return fmt.Errorf("invalid thread id %q", t.ID)
	}
	msgs, err := json.Marshal(t.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO threads (id, title, messages, ts)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id)
DO UPDATE SET title=EXCLUDED.title,
  messages=EXCLUDED.messages,
  ts=EXCLUDED.ts`, t.ID, t.Title, string(msgs), t.Ts)
	if err != nil {
		return fmt.Errorf("failed to save thread: %w", err)
	}
	return nil
}

// Load reads the thread with the given id.
func (s *PostgresStore) Load(ctx context.Context, id string) (Thread, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return Thread{}, err
	}
	var t Thread
	var msgs []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, messages, ts FROM threads WHERE id = $1`, strings.TrimSpace(id),
	).Scan(&t.ID, &t.Title, &msgs, &t.Ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Thread{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Thread{}, fmt.Errorf("failed to load thread: %w", err)
	}
	if err := json.Unmarshal(msgs, &t.Messages); err != nil {
		return Thread{}, fmt.Errorf("failed to decode thread %s: %w", id, err)
	}
	return t, nil
}

// List returns all threads, newest first.
func (s *PostgresStore) List(ctx context.Context) ([]Summary, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, jsonb_array_length(messages), ts FROM threads ORDER BY ts DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Messages, &sum.Ts); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a thread.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM threads WHERE id = $1`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
