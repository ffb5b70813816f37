package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/jotter/pkg/types"
)

// setupBackend attaches a Backend to a fresh temp directory and detaches it
// when the test ends.
func setupBackend(t *testing.T) (*Backend, string) {
	t.Helper()
	dir := t.TempDir()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	t.Cleanup(func() { b.Detach() })
	return b, dir
}

func TestBackend_Attach(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend()
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	require.NoError(t, b.Attach(config))
	defer b.Detach()

	assert.FileExists(t, filepath.Join(dir, DBFile))
	assert.Equal(t, filepath.Join(dir, DBFile), b.Path())
	assert.ErrorIs(t, b.Attach(config), types.ErrAlreadyAttached)
}

func TestBackend_AttachErrors(t *testing.T) {
	tests := []struct {
		name    string
		config  func(t *testing.T) types.Config
		wantErr error
	}{
		{
			name: "invalid config",
			config: func(t *testing.T) types.Config {
				return types.Config{Backend: "bogus"}
			},
			wantErr: types.ErrBackendUnknown,
		},
		{
			name: "data dir is a file",
			config: func(t *testing.T) types.Config {
				path := filepath.Join(t.TempDir(), "file")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
				return types.Config{Backend: types.BackendSQLite, DataDir: path}
			},
		},
		{
			name: "database file is not sqlite",
			config: func(t *testing.T) types.Config {
				dir := t.TempDir()
				junk := make([]byte, 4096)
				for i := range junk {
					junk[i] = 'x'
				}
				require.NoError(t, os.WriteFile(filepath.Join(dir, DBFile), junk, 0644))
				return types.Config{Backend: types.BackendSQLite, DataDir: dir}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBackend()
			err := b.Attach(tt.config(t))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			_, err = b.Load(context.Background())
			assert.ErrorIs(t, err, types.ErrDetached, "a failed Attach leaves the backend detached")
		})
	}
}

func TestBackend_Detach(t *testing.T) {
	b, _ := setupBackend(t)

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "Detach is idempotent")

	ctx := context.Background()
	_, err := b.Load(ctx)
	assert.ErrorIs(t, err, types.ErrDetached)
	n := types.NewNote(types.Draft{Title: "x"}, time.Now())
	assert.ErrorIs(t, b.Insert(ctx, &n), types.ErrDetached)
	assert.ErrorIs(t, b.Update(ctx, n), types.ErrDetached)
	assert.ErrorIs(t, b.Delete(ctx, 1), types.ErrDetached)
	assert.ErrorIs(t, b.Upsert(ctx, nil), types.ErrDetached)
	assert.ErrorIs(t, b.Replace(ctx, nil), types.ErrDetached)
}

func TestBackend_ReattachKeepsRows(t *testing.T) {
	b, dir := setupBackend(t)
	ctx := context.Background()

	n := types.NewNote(types.Draft{Title: "persisted"}, time.Now())
	require.NoError(t, b.Insert(ctx, &n))
	require.NoError(t, b.Detach())

	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	notes, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, n, notes[0])
}

func TestBackend_MigratesLegacySchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DBFile)

	legacy, err := sqlx.Open(types.DriverPure, path)
	require.NoError(t, err)
	_, err = legacy.Exec(`CREATE TABLE notes (id INTEGER PRIMARY KEY, title TEXT, content TEXT, createdAt TEXT, updatedAt TEXT)`)
	require.NoError(t, err)
	_, err = legacy.Exec(`INSERT INTO notes (title, content, createdAt, updatedAt) VALUES (?, ?, ?, ?)`,
		"old", "from before images", "2023-04-05T06:07:08.123Z", "2023-04-05T06:07:09.456Z")
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	defer b.Detach()

	notes, err := b.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "old", notes[0].Title)
	assert.Empty(t, notes[0].Image)
	assert.Equal(t, time.Date(2023, 4, 5, 6, 7, 8, 123e6, time.UTC), notes[0].CreatedAt)
	assert.Equal(t, time.Date(2023, 4, 5, 6, 7, 9, 456e6, time.UTC), notes[0].UpdatedAt)

	n := notes[0]
	n.Image = "data:image/gif;base64,R0lGOD"
	require.NoError(t, b.Update(context.Background(), n), "migrated table accepts images")

	seq, err := b.Sequence(context.Background())
	require.NoError(t, err)
	assert.Equal(t, n.ID, seq, "the sequence starts at the highest existing id")
}
