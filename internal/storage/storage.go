// Package storage picks and attaches the note backend at startup.
package storage

import (
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/jotter/internal/blob"
	"github.com/mesh-intelligence/jotter/internal/sqlite"
	"github.com/mesh-intelligence/jotter/pkg/types"
)

// Storage is an attached backend and the name of the variant in use.
type Storage struct {
	types.Backend

	// Kind is types.BackendSQLite or types.BackendBlob.
	Kind string
	// FellBack is set when SQLite was requested but the blob is in use.
	FellBack bool
}

type options struct {
	logger *slog.Logger
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger for the fallback warning and the blob backend.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open attaches the backend named by config.Backend. When SQLite cannot be
// attached and config.Fallback is set, Open logs a warning and attaches the
// local blob in the same data directory instead. The fallback happens at most
// once; a failing blob is returned as an error.
func Open(config types.Config, opts ...Option) (*Storage, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Backend == types.BackendSQLite {
		db := sqlite.NewBackend(sqlite.WithLogger(o.logger))
		err := db.Attach(config)
		if err == nil {
			o.logger.Debug("attached sqlite backend", "path", db.Path(), "driver", config.GetSQLiteDriver())
			return &Storage{Backend: db, Kind: types.BackendSQLite}, nil
		}
		if !config.Fallback {
			return nil, fmt.Errorf("attaching sqlite backend: %w", err)
		}
		o.logger.Warn("sqlite unavailable; falling back to local blob",
			"data_dir", config.DataDir,
			"err", err)
		s, blobErr := openBlob(config, o.logger)
		if blobErr != nil {
			return nil, blobErr
		}
		s.FellBack = true
		return s, nil
	}

	return openBlob(config, o.logger)
}

func openBlob(config types.Config, logger *slog.Logger) (*Storage, error) {
	config.Backend = types.BackendBlob
	b := blob.NewBackend(blob.WithLogger(logger))
	if err := b.Attach(config); err != nil {
		return nil, fmt.Errorf("attaching blob backend: %w", err)
	}
	logger.Debug("attached blob backend", "path", b.Path())
	return &Storage{Backend: b, Kind: types.BackendBlob}, nil
}
