// Package sqlite implements the relational note backend on SQLite.
//
// Two database/sql drivers are linked in: modernc.org/sqlite (pure Go,
// registered as "sqlite") and mattn/go-sqlite3 (cgo, registered as
// "sqlite3"). Config.SQLiteDriver picks one.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/jotter/pkg/types"
)

// DBFile is the database file name inside the data directory.
const DBFile = "database.db"

// attachTimeout bounds opening, pinging and migrating the database.
const attachTimeout = 5 * time.Second

func init() {
	// sqlx knows "sqlite3" but not the modernc driver name.
	sqlx.BindDriver(types.DriverPure, sqlx.QUESTION)
}

// Compile-time interface check.
var _ types.Backend = (*Backend)(nil)

// Backend implements types.Backend using a single SQLite connection.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	path     string
	db       *sqlx.DB
	logger   *slog.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for rows that load with damaged fields.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach opens DataDir/database.db with the configured driver, verifies the
// connection and brings the schema up to date. Existing rows are kept.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFile)
	db, err := sqlx.Open(config.GetSQLiteDriver(), dbPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), attachTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("connecting to %s: %w", dbPath, err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return err
	}

	b.db = db
	b.path = dbPath
	b.config = config
	b.attached = true
	return nil
}

// Detach closes the database. After Detach, all operations return
// ErrDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	db := b.db
	b.db = nil
	if err := db.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", b.path, err)
	}
	return nil
}

// Path returns the database file, or "" before the first Attach.
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// conn returns the open handle or ErrDetached.
// The caller must hold b.mu.
func (b *Backend) conn() (*sqlx.DB, error) {
	if !b.attached {
		return nil, types.ErrDetached
	}
	return b.db, nil
}
