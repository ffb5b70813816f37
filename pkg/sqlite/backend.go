// Package sqlite exposes the SQLite note backend to programs outside this
// module while keeping its implementation internal.
package sqlite

import (
	"github.com/mesh-intelligence/jotter/internal/sqlite"
	"github.com/mesh-intelligence/jotter/pkg/types"
)

// DBFile is the database file created inside Config.DataDir.
const DBFile = sqlite.DBFile

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: dir,
//	})
//	defer backend.Detach()
func NewBackend() types.Backend {
	return sqlite.NewBackend()
}
