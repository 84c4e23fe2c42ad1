package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/store"
	"github.com/dgallion1/docinsight/internal/store/storetest"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return setupTestStore(t) })
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "again.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.StoreDocuments(context.Background(), nil))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 1, n)
	assert.Equal(t, path, s.Path())
}

func TestDeleteDocument_CascadesSections(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.StoreDocuments(ctx, []doctree.ParsedDocument{storetest.Doc("01X", "T", "/t.txt", "a", "b")}))
	require.NoError(t, s.DeleteDocument(ctx, "01X"))

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM sections").Scan(&n))
	assert.Zero(t, n)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%wire%`, likePattern("WIRE"))
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
}
