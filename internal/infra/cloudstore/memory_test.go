package cloudstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/note-it-down/internal/domain/note"
)

func TestMemoryStoreScopesByOwner(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	older, err := store.Create(ctx, "alice", note.Summary{ID: "local-1", Title: "older", CreatedAt: base})
	require.NoError(t, err)
	require.NotEqual(t, "local-1", older.ID)
	_, err = store.Create(ctx, "alice", note.Summary{Title: "newer", CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	bobs, err := store.Create(ctx, "bob", note.Summary{Title: "bob", CreatedAt: base})
	require.NoError(t, err)

	items, err := store.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "newer", items[0].Title)

	require.ErrorIs(t, store.Delete(ctx, "alice", bobs.ID), ErrNotOwner)
	require.NoError(t, store.Delete(ctx, "alice", older.ID))
	require.NoError(t, store.Delete(ctx, "alice", "unknown"))

	items, err = store.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestFirestoreMapping(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	doc := toFirestore("uid-1", note.Summary{ID: "ignored", Title: "T", Content: "C", OriginalText: "O", CreatedAt: created})
	require.Equal(t, "uid-1", doc.UserID)
	require.Equal(t, time.UTC, doc.CreatedAt.Location())

	back := doc.toNote("doc-9")
	require.Equal(t, "doc-9", back.ID)
	require.Equal(t, "T", back.Title)
	require.True(t, back.CreatedAt.Equal(created))
}
