// Package blob implements the local-blob note backend: the whole note
// collection is one JSON document stored under a fixed key in a file-backed
// key-value store.
package blob

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/mesh-intelligence/jotter/pkg/types"
)

// keyPattern restricts keys to names that are safe as file names.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// KV is a persistent key-value store with one file per key. Writes replace
// the whole value atomically; concurrent writers to the same key resolve as
// last write wins.
type KV struct {
	dir string
}

// NewKV opens a store rooted at dir, creating the directory if needed.
func NewKV(dir string) (*KV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &KV{dir: dir}, nil
}

// Path returns the file that holds key.
func (kv *KV) Path(key string) string {
	return filepath.Join(kv.dir, key+".json")
}

// Get returns the value stored under key. The boolean is false when the key
// has never been written.
func (kv *KV) Get(key string) ([]byte, bool, error) {
	if !keyPattern.MatchString(key) {
		return nil, false, fmt.Errorf("%w: %q", types.ErrInvalidKey, key)
	}
	data, err := os.ReadFile(kv.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, true, nil
}

// Put stores value under key.
func (kv *KV) Put(key string, value []byte) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", types.ErrInvalidKey, key)
	}
	return writeFileAtomic(kv.Path(key), value)
}

// writeFileAtomic writes data using the temp-file, fsync, rename pattern so a
// crash never leaves a half-written value behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".kv-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	if _, err := w.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing value: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
