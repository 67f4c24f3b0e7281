package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Chips uint64 `json:"chips"`
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "fairpoker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestStoreSequences(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for want := uint64(1); want <= 3; want++ {
				id, err := s.Next(ctx, KindGame)
				require.NoError(t, err)
				assert.Equal(t, want, id)
			}
			id, err := s.Next(ctx, KindSession)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), id, "each kind has its own sequence")
		})
	}
}

func TestStorePutGet(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, KindGame, 7, record{Name: "alice", Chips: 200}))
			require.NoError(t, s.Put(ctx, KindGame, 7, record{Name: "alice", Chips: 150}))

			var got record
			require.NoError(t, s.Get(ctx, KindGame, 7, &got))
			assert.Equal(t, record{Name: "alice", Chips: 150}, got)

			err := s.Get(ctx, KindSession, 7, &got)
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSQLiteReopenKeepsState(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	_, err = s.Next(ctx, KindGame)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, KindGame, 1, record{Name: "bob"}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	id, err := s.Next(ctx, KindGame)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)

	var got record
	require.NoError(t, s.Get(ctx, KindGame, 1, &got))
	assert.Equal(t, "bob", got.Name)
}

func TestStatements(t *testing.T) {
	got := statements("-- comment\nCREATE TABLE a (x INT);\n\n-- other\nCREATE TABLE b (y INT);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE TABLE b (y INT)"}, got)
}
