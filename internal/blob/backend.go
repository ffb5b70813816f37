package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/mesh-intelligence/jotter/pkg/types"
)

// Storage keys. NotesKey holds the note collection as a JSON array; SeqKey
// holds the highest ID ever assigned.
const (
	NotesKey = "notes"
	SeqKey   = "notes_seq"
)

// Compile-time interface check.
var _ types.Backend = (*Backend)(nil)

// Backend implements types.Backend on top of a KV store. It keeps a copy of
// the collection so each mutation can rewrite the blob in one write.
type Backend struct {
	mu       sync.Mutex
	attached bool
	kv       *KV
	notes    []types.Note
	seq      int64
	logger   *slog.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for degraded reads.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBackend creates a detached blob backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach opens the KV store in config.DataDir and reads the current blob.
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
	kv, err := NewKV(dataDir)
	if err != nil {
		return err
	}

	b.kv = kv
	b.notes = b.read()
	b.seq = max(b.readSeq(), maxID(b.notes))
	b.attached = true
	return nil
}

// Detach releases the store. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.attached = false
	b.kv = nil
	b.notes = nil
	b.seq = 0
	return nil
}

// Path returns the file holding the blob, or "" when detached.
func (b *Backend) Path() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.kv == nil {
		return ""
	}
	return b.kv.Path(NotesKey)
}

// Load re-reads the blob. A missing key or a value that is not a JSON array
// of notes yields an empty collection rather than an error.
func (b *Backend) Load(ctx context.Context) ([]types.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil, types.ErrDetached
	}
	b.notes = b.read()
	b.seq = max(b.seq, b.readSeq(), maxID(b.notes))
	return slices.Clone(b.notes), nil
}

// Sequence returns the highest ID ever assigned, including IDs of notes that
// have since been deleted.
func (b *Backend) Sequence(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return 0, types.ErrDetached
	}
	return b.seq, nil
}

// Insert assigns the ID after the sequence and rewrites the blob.
func (b *Backend) Insert(ctx context.Context, n *types.Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}

	stored := *n
	stored.ID = b.seq + 1
	notes := append(slices.Clone(b.notes), stored)
	if err := b.save(notes, stored.ID); err != nil {
		return err
	}
	b.notes = notes
	b.seq = stored.ID
	n.ID = stored.ID
	return nil
}

// Update replaces the note with the same ID and rewrites the blob.
func (b *Backend) Update(ctx context.Context, n types.Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}

	idx := indexOf(b.notes, n.ID)
	if idx < 0 {
		return fmt.Errorf("updating note %d: %w", n.ID, types.ErrNotFound)
	}
	notes := slices.Clone(b.notes)
	notes[idx] = n
	if err := b.save(notes, b.seq); err != nil {
		return err
	}
	b.notes = notes
	return nil
}

// Delete removes the note with the given ID. An absent ID leaves the blob
// untouched.
func (b *Backend) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}

	idx := indexOf(b.notes, id)
	if idx < 0 {
		return nil
	}
	notes := slices.Delete(slices.Clone(b.notes), idx, idx+1)
	if err := b.save(notes, b.seq); err != nil {
		return err
	}
	b.notes = notes
	return nil
}

// Upsert inserts or replaces each note keyed by ID. Later entries win over
// earlier ones with the same ID. Notes without an ID get the next free one.
func (b *Backend) Upsert(ctx context.Context, incoming []types.Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}
	notes, seq := merge(slices.Clone(b.notes), incoming, b.seq)
	if err := b.save(notes, seq); err != nil {
		return err
	}
	b.notes = notes
	b.seq = seq
	return nil
}

// Replace discards the stored collection and stores incoming instead. The
// sequence is kept, so IDs of discarded notes are not reused.
func (b *Backend) Replace(ctx context.Context, incoming []types.Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}
	notes, seq := merge(make([]types.Note, 0, len(incoming)), incoming, b.seq)
	if err := b.save(notes, seq); err != nil {
		return err
	}
	b.notes = notes
	b.seq = seq
	return nil
}

// merge applies incoming to notes by ID and returns the result with the
// advanced sequence.
func merge(notes, incoming []types.Note, seq int64) ([]types.Note, int64) {
	seq = max(seq, maxID(incoming))
	for _, n := range incoming {
		if n.ID == 0 {
			seq++
			n.ID = seq
		}
		if idx := indexOf(notes, n.ID); idx >= 0 {
			notes[idx] = n
			continue
		}
		notes = append(notes, n)
	}
	return notes, seq
}

// read loads the blob leniently. The caller must hold b.mu.
func (b *Backend) read() []types.Note {
	data, ok, err := b.kv.Get(NotesKey)
	if err != nil {
		b.logger.Warn("failed to read stored notes; starting empty",
			"path", b.kv.Path(NotesKey),
			"err", err)
		return nil
	}
	if !ok {
		return nil
	}

	var notes []types.Note
	if err := json.Unmarshal(data, &notes); err != nil {
		b.logger.Warn("stored notes are not a JSON array of notes; starting empty",
			"path", b.kv.Path(NotesKey),
			"err", err)
		return nil
	}
	return notes
}

// readSeq loads the stored sequence. A missing or unreadable value counts
// as zero; Attach and Load raise it to the highest stored ID. The caller must
// hold b.mu.
func (b *Backend) readSeq() int64 {
	data, ok, err := b.kv.Get(SeqKey)
	if err != nil || !ok {
		return 0
	}
	seq, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		b.logger.Warn("stored note sequence is not a number; using highest note id",
			"path", b.kv.Path(SeqKey),
			"err", err)
		return 0
	}
	return seq
}

// save writes the sequence, when it moved, and then the notes. A crash
// between the two writes can only skip IDs, never reuse them. The caller
// must hold b.mu.
func (b *Backend) save(notes []types.Note, seq int64) error {
	if seq > b.seq {
		if err := b.kv.Put(SeqKey, []byte(strconv.FormatInt(seq, 10))); err != nil {
			return fmt.Errorf("writing %s: %w", SeqKey, err)
		}
	}
	if notes == nil {
		notes = []types.Note{}
	}
	data, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("marshaling notes: %w", err)
	}
	if err := b.kv.Put(NotesKey, data); err != nil {
		return fmt.Errorf("writing %s: %w", NotesKey, err)
	}
	return nil
}

// maxID returns the highest ID in notes, or 0.
func maxID(notes []types.Note) int64 {
	var highest int64
	for _, n := range notes {
		highest = max(highest, n.ID)
	}
	return highest
}

func indexOf(notes []types.Note, id int64) int {
	return slices.IndexFunc(notes, func(n types.Note) bool { return n.ID == id })
}
