package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/jotter/pkg/sqlite"
	"github.com/mesh-intelligence/jotter/pkg/types"
)

func TestNewBackend(t *testing.T) {
	dir := t.TempDir()
	backend := sqlite.NewBackend()

	_, err := backend.Load(context.Background())
	assert.ErrorIs(t, err, types.ErrDetached, "a new backend starts detached")

	require.NoError(t, backend.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	t.Cleanup(func() { backend.Detach() })

	_, err = os.Stat(filepath.Join(dir, sqlite.DBFile))
	require.NoError(t, err)

	n := types.Note{Title: "hello", CreatedAt: types.Now(), UpdatedAt: types.Now()}
	require.NoError(t, backend.Insert(context.Background(), &n))
	assert.Equal(t, int64(1), n.ID)

	got, err := backend.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Title)
}
