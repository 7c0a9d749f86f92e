// Package sqlite provides a local, CGO-free document store. The service
// commonly runs on operator laptops inside filtered networks, where a
// single-file database is the right amount of infrastructure.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // database/sql driver

	"github.com/parsalaw/lawfetch/internal/fetch"
	"github.com/parsalaw/lawfetch/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id             TEXT PRIMARY KEY,
	url            TEXT NOT NULL,
	canonical_url  TEXT NOT NULL,
	content_hash   TEXT NOT NULL UNIQUE,
	raw_text       TEXT NOT NULL,
	strategy_used  TEXT NOT NULL,
	legal_score    INTEGER NOT NULL,
	category_scores TEXT NOT NULL,
	fetched_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_fetched_at ON documents (fetched_at DESC);
`

// DocumentStore implements store.DocumentStore over a single SQLite file.
type DocumentStore struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path and runs migrations.
func New(ctx context.Context, path string) (*DocumentStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return &DocumentStore{db: db}, nil
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
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents
		 (id, url, canonical_url, content_hash, raw_text, strategy_used, legal_score, category_scores, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (content_hash) DO NOTHING`,
		rec.ID, rec.URL, rec.CanonicalURL, rec.ContentHash, rec.RawText,
		rec.StrategyUsed, rec.LegalScore, string(scores), rec.FetchedAt,
	)
	if err != nil {
		return false, "", fmt.Errorf("insert document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, "", fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return true, "", nil
	}
	var existingID string
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM documents WHERE content_hash = ?`, rec.ContentHash,
	).Scan(&existingID)
	if err != nil {
		return false, "", fmt.Errorf("lookup existing document: %w", err)
	}
	return false, existingID, nil
}

// Get fetches a record by content hash.
func (s *DocumentStore) Get(ctx context.Context, contentHash string) (fetch.ContentRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, canonical_url, content_hash, raw_text, strategy_used, legal_score, category_scores, fetched_at
		 FROM documents WHERE content_hash = ?`, contentHash)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
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
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, canonical_url, content_hash, raw_text, strategy_used, legal_score, category_scores, fetched_at
		 FROM documents ORDER BY fetched_at DESC LIMIT ?`, limit)
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

// Close releases the database handle.
func (s *DocumentStore) Close() error {
	return s.db.Close()
}

func scanRecord(scan func(dest ...any) error) (fetch.ContentRecord, error) {
	var (
		rec       fetch.ContentRecord
		scores    string
		fetchedAt time.Time
	)
	if err := scan(&rec.ID, &rec.URL, &rec.CanonicalURL, &rec.ContentHash, &rec.RawText,
		&rec.StrategyUsed, &rec.LegalScore, &scores, &fetchedAt); err != nil {
		return fetch.ContentRecord{}, err
	}
	rec.FetchedAt = fetchedAt
	if err := json.Unmarshal([]byte(scores), &rec.CategoryScores); err != nil {
		return fetch.ContentRecord{}, fmt.Errorf("decode category scores: %w", err)
	}
	return rec, nil
}
