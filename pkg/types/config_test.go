package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:   "valid sqlite config",
			config: Config{Backend: "sqlite", DataDir: "/tmp/data"},
		},
		{
			name:   "valid blob config",
			config: Config{Backend: "blob", DataDir: "/tmp/data"},
		},
		{
			name:   "sqlite with empty DataDir is valid at config level",
			config: Config{Backend: "sqlite", DataDir: ""},
		},
		{
			name:   "cgo driver accepted",
			config: Config{Backend: "sqlite", SQLiteDriver: DriverCGO},
		},
		{
			name:    "unknown driver returns ErrDriverUnknown",
			config:  Config{Backend: "sqlite", SQLiteDriver: "pgx"},
			wantErr: ErrDriverUnknown,
		},
		{
			name:    "negative page size returns ErrPageSizeInvalid",
			config:  Config{Backend: "blob", PageSize: -1},
			wantErr: ErrPageSizeInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	if got := c.GetSQLiteDriver(); got != DriverPure {
		t.Fatalf("GetSQLiteDriver() = %q, want %q", got, DriverPure)
	}
	if got := c.GetPageSize(); got != DefaultPageSize {
		t.Fatalf("GetPageSize() = %d, want %d", got, DefaultPageSize)
	}

	c = Config{SQLiteDriver: DriverCGO, PageSize: 10}
	if got := c.GetSQLiteDriver(); got != DriverCGO {
		t.Fatalf("GetSQLiteDriver() = %q, want %q", got, DriverCGO)
	}
	if got := c.GetPageSize(); got != 10 {
		t.Fatalf("GetPageSize() = %d, want 10", got)
	}
}
