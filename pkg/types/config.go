package types

import "errors"

// Config holds backend selection and parameters for Backend.Attach.
type Config struct {
	Backend      string `json:"backend" yaml:"backend"`
	DataDir      string `json:"data_dir" yaml:"data_dir"`
	SQLiteDriver string `json:"sqlite_driver,omitempty" yaml:"sqlite_driver,omitempty"`
	Fallback     bool   `json:"fallback" yaml:"fallback"`
	PageSize     int    `json:"page_size,omitempty" yaml:"page_size,omitempty"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
	BackendBlob   = "blob"
)

// Supported database/sql driver names for the SQLite backend.
// DriverPure is modernc.org/sqlite; DriverCGO is mattn/go-sqlite3.
const (
	DriverPure = "sqlite"
	DriverCGO  = "sqlite3"
)

// DefaultPageSize is the number of notes shown per page.
const DefaultPageSize = 6

// Config validation errors.
var (
	ErrBackendEmpty    = errors.New("backend must not be empty")
	ErrBackendUnknown  = errors.New("unknown backend")
	ErrDriverUnknown   = errors.New("unknown sqlite driver")
	ErrPageSizeInvalid = errors.New("page size must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendBlob:   true,
}

var knownDrivers = map[string]bool{
	DriverPure: true,
	DriverCGO:  true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.SQLiteDriver != "" && !knownDrivers[c.SQLiteDriver] {
		return ErrDriverUnknown
	}
	if c.PageSize < 0 {
		return ErrPageSizeInvalid
	}
	return nil
}

// GetSQLiteDriver returns the configured driver name, defaulting to the
// pure Go driver.
func (c Config) GetSQLiteDriver() string {
	if c.SQLiteDriver == "" {
		return DriverPure
	}
	return c.SQLiteDriver
}

// GetPageSize returns the configured page size or DefaultPageSize when unset.
func (c Config) GetPageSize() int {
	if c.PageSize <= 0 {
		return DefaultPageSize
	}
	return c.PageSize
}
