package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parsalaw/lawfetch/internal/fetch"
	"github.com/parsalaw/lawfetch/internal/store"
)

func TestDocumentStoreDeduplicates(t *testing.T) {
	t.Parallel()

	s := NewDocumentStore()
	ctx := context.Background()

	stored, existingID, err := s.Store(ctx, fetch.ContentRecord{ID: "doc-1", ContentHash: "h1"})
	require.NoError(t, err)
	require.True(t, stored)
	require.Empty(t, existingID)

	// Same hash from a different URL is a dedup hit, repeatably.
	for i := 0; i < 3; i++ {
		stored, existingID, err = s.Store(ctx, fetch.ContentRecord{ID: "doc-2", ContentHash: "h1"})
		require.NoError(t, err)
		require.False(t, stored)
		require.Equal(t, "doc-1", existingID)
	}

	docs, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestDocumentStoreAssignsID(t *testing.T) {
	t.Parallel()

	s := NewDocumentStore()
	ctx := context.Background()

	stored, _, err := s.Store(ctx, fetch.ContentRecord{ContentHash: "h1"})
	require.NoError(t, err)
	require.True(t, stored)

	rec, err := s.Get(ctx, "h1")
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
}

func TestDocumentStoreGetMissing(t *testing.T) {
	t.Parallel()

	s := NewDocumentStore()
	_, err := s.Get(context.Background(), "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDocumentStoreListNewestFirst(t *testing.T) {
	t.Parallel()

	s := NewDocumentStore()
	ctx := context.Background()
	for _, h := range []string{"h1", "h2", "h3"} {
		_, _, err := s.Store(ctx, fetch.ContentRecord{ID: h, ContentHash: h})
		require.NoError(t, err)
	}

	docs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "h3", docs[0].ID)
	require.Equal(t, "h2", docs[1].ID)
}
