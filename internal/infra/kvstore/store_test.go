package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/note-it-down/internal/domain/kv"
)

func TestStores(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T) kv.Store
	}{
		{
			name:  "memory",
			build: func(t *testing.T) kv.Store { return NewMemoryStore() },
		},
		{
			name: "sqlite",
			build: func(t *testing.T) kv.Store {
				store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "notes.sqlite"))
				require.NoError(t, err)
				t.Cleanup(func() { _ = store.Close() })
				return store
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := tt.build(t)

			_, ok, err := store.Get(ctx, kv.KeySummaries)
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, store.Set(ctx, kv.KeySummaries, "[]"))
			require.NoError(t, store.Set(ctx, kv.KeySummaries, `[{"id":"1"}]`))

			value, ok, err := store.Get(ctx, kv.KeySummaries)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, `[{"id":"1"}]`, value)

			require.NoError(t, store.Delete(ctx, kv.KeySummaries))
			_, ok, err = store.Get(ctx, kv.KeySummaries)
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, store.Delete(ctx, "missing"))
		})
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "notes.sqlite")

	store, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, kv.KeyWhisperModel, "whisper-large-v3-turbo"))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	value, ok, err := reopened.Get(ctx, kv.KeyWhisperModel)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "whisper-large-v3-turbo", value)
}
