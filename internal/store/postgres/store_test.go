package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/parsalaw/lawfetch/internal/fetch"
	"github.com/parsalaw/lawfetch/internal/store"
)

func testRecord() fetch.ContentRecord {
	return fetch.ContentRecord{
		ID:             "doc-1",
		URL:            "https://rc.majlis.ir/fa/law/show/91015",
		CanonicalURL:   "https://rc.majlis.ir/fa/law/show/91015",
		ContentHash:    "abc123",
		RawText:        "ماده ۱ قانون",
		StrategyUsed:   string(fetch.StrategyDirect),
		LegalScore:     30,
		CategoryScores: map[string]int{"قانونی": 3},
		FetchedAt:      time.Unix(1700000000, 0).UTC(),
	}
}

func TestStoreInsertsDocument(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock)
	rec := testRecord()

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs(
			rec.ID, rec.URL, rec.CanonicalURL, rec.ContentHash, rec.RawText,
			rec.StrategyUsed, rec.LegalScore, []byte(`{"قانونی":3}`), rec.FetchedAt,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(rec.ID))

	stored, existingID, err := s.Store(context.Background(), rec)
	require.NoError(t, err)
	require.True(t, stored)
	require.Empty(t, existingID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreReturnsExistingIDOnDuplicateHash(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock)
	rec := testRecord()

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs(
			rec.ID, rec.URL, rec.CanonicalURL, rec.ContentHash, rec.RawText,
			rec.StrategyUsed, rec.LegalScore, []byte(`{"قانونی":3}`), rec.FetchedAt,
		).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT id FROM documents").
		WithArgs(rec.ContentHash).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("earlier-doc"))

	stored, existingID, err := s.Store(context.Background(), rec)
	require.NoError(t, err)
	require.False(t, stored)
	require.Equal(t, "earlier-doc", existingID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMissingDocument(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock)

	mock.ExpectQuery("SELECT .+ FROM documents WHERE content_hash").
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err = s.Get(context.Background(), "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
