// Package postgres provides the production document store backed by
// PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parsalaw/lawfetch/internal/fetch"
	"github.com/parsalaw/lawfetch/internal/store"
)

// Config controls the connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// dbConn is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type dbConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// DocumentStore implements store.DocumentStore over Postgres.
type DocumentStore struct {
	pool dbConn
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id              UUID PRIMARY KEY,
	url             TEXT NOT NULL,
	canonical_url   TEXT NOT NULL,
	content_hash    TEXT NOT NULL UNIQUE,
	raw_text        TEXT NOT NULL,
	strategy_used   TEXT NOT NULL,
	legal_score     INT NOT NULL,
	category_scores JSONB NOT NULL,
	fetched_at      TIMESTAMPTZ NOT NULL
)`

// New connects a pool and ensures the schema exists.
func New(ctx context.Context, cfg Config) (*DocumentStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &DocumentStore{pool: pool}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres schema: %w", err)
	}
	return s, nil
}

// NewWithPool wraps an existing pool-compatible connection (tests).
func NewWithPool(pool dbConn) *DocumentStore {
	return &DocumentStore{pool: pool}
}

// Store inserts the record; an existing content hash wins and its ID is
// returned instead.
func (s *DocumentStore) Store(ctx context.Context, rec fetch.ContentRecord) (bool, string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	scores, err := json.Marshal(rec.CategoryScores)
	if err != nil {
		return false, "", fmt.Errorf("encode category scores: %w", err)
	}
	var insertedID string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO documents
		 (id, url, canonical_url, content_hash, raw_text, strategy_used, legal_score, category_scores, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (content_hash) DO NOTHING
		 RETURNING id`,
		rec.ID, rec.URL, rec.CanonicalURL, rec.ContentHash, rec.RawText,
		rec.StrategyUsed, rec.LegalScore, scores, rec.FetchedAt,
	).Scan(&insertedID)
	if err == nil {
		return true, "", nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, "", fmt.Errorf("insert document: %w", err)
	}
	var existingID string
	err = s.pool.QueryRow(ctx,
		`SELECT id FROM documents WHERE content_hash = $1`, rec.ContentHash,
	).Scan(&existingID)
	if err != nil {
		return false, "", fmt.Errorf("lookup existing document: %w", err)
	}
	return false, existingID, nil
}

// Get fetches a record by content hash.
func (s *DocumentStore) Get(ctx context.Context, contentHash string) (fetch.ContentRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, url, canonical_url, content_hash, raw_text, strategy_used, legal_score, category_scores, fetched_at
		 FROM documents WHERE content_hash = $1`, contentHash)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return fetch.ContentRecord{}, store.ErrNotFound
	}
	if err != nil {
		return fetch.ContentRecord{}, fmt.Errorf("get document: %w", err)
	}
	return rec, nil
}

// List returns up to limit records, newest first.
func (s *DocumentStore) List(ctx context.Context, limit int) ([]fetch.ContentRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, url, canonical_url, content_hash, raw_text, strategy_used, legal_score, category_scores, fetched_at
		 FROM documents ORDER BY fetched_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []fetch.ContentRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// Close releases the pool.
func (s *DocumentStore) Close() error {
	s.pool.Close()
	return nil
}

func scanRecord(scan func(dest ...any) error) (fetch.ContentRecord, error) {
	var (
		rec    fetch.ContentRecord
		scores []byte
	)
	if err := scan(&rec.ID, &rec.URL, &rec.CanonicalURL, &rec.ContentHash, &rec.RawText,
		&rec.StrategyUsed, &rec.LegalScore, &scores, &rec.FetchedAt); err != nil {
		return fetch.ContentRecord{}, err
	}
	if err := json.Unmarshal(scores, &rec.CategoryScores); err != nil {
		return fetch.ContentRecord{}, fmt.Errorf("decode category scores: %w", err)
	}
	return rec, nil
}
