// Package store persists file operation history to PostgreSQL.
//
// Table contents are never stored; only the operation log (what was applied
// to which file, when, and with what effect) is kept for later review.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/dataprep/internal/config"
	"github.com/JonMunkholm/dataprep/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS file_operations (
	id          BIGSERIAL PRIMARY KEY,
	session_id  TEXT        NOT NULL,
	file_id     UUID        NOT NULL,
	file_name   TEXT        NOT NULL,
	seq         INTEGER     NOT NULL,
	kind        TEXT        NOT NULL,
	rows_before INTEGER     NOT NULL,
	rows_after  INTEGER     NOT NULL,
	cols_after  INTEGER     NOT NULL,
	changed     INTEGER     NOT NULL,
	detail      TEXT        NOT NULL DEFAULT '',
	ip_address  TEXT,
	user_agent  TEXT,
	applied_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (file_id, seq)
);
CREATE INDEX IF NOT EXISTS file_operations_session_idx ON file_operations (session_id, applied_at);
`

const insertOperation = `
INSERT INTO file_operations (
	session_id, file_id, file_name, seq, kind,
	rows_before, rows_after, cols_after, changed, detail,
	ip_address, user_agent, applied_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (file_id, seq) DO NOTHING
`

// execer is the subset of pgxpool.Pool the recorder needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// NewPool opens and verifies a connection pool.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// HistoryStore implements core.OperationRecorder.
type HistoryStore struct {
	db execer
}

// NewHistoryStore wraps a pool.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{db: pool}
}

// EnsureSchema creates the history table if it does not exist.
func (s *HistoryStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// RecordOperation stores one history entry. Re-recording the same entry is a
// no-op.
func (s *HistoryStore) RecordOperation(ctx context.Context, ev core.OperationEvent) error {
	op := ev.Operation
	_, err := s.db.Exec(ctx, insertOperation,
		ev.SessionID,
		ev.FileID,
		ev.FileName,
		op.Seq,
		string(op.Kind),
		op.RowsBefore,
		op.RowsAfter,
		op.ColsAfter,
		op.Changed,
		op.Detail,
		nullable(ev.IPAddress),
		nullable(ev.UserAgent),
		op.At,
	)
	if err != nil {
		return fmt.Errorf("insert operation %s #%d: %w", op.Kind, op.Seq, err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ core.OperationRecorder = (*HistoryStore)(nil)
