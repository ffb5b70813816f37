// Package notes holds the in-memory note collection and keeps it in step
// with a persistence backend.
//
// Every successful mutation performs one backend write before it returns.
// When the write fails the in-memory collection is left as it was and the
// error wraps types.ErrPersistence.
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/mesh-intelligence/jotter/pkg/types"
)

// Store is the authoritative note collection for a session. Safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	backend types.Backend
	notes   []types.Note
	seq     int64
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for degraded loads.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now for timestamping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open loads the collection from an attached backend. A load failure is
// logged and the store starts empty.
func Open(ctx context.Context, backend types.Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("opening note store: nil backend")
	}
	s := &Store{
		backend: backend,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	loaded, err := backend.Load(ctx)
	if err != nil {
		s.logger.Warn("failed to load notes; starting empty", "err", err)
		loaded = nil
	}
	s.notes = loaded

	seq, err := backend.Sequence(ctx)
	if err != nil {
		s.logger.Warn("failed to read note sequence; using highest loaded id", "err", err)
	}
	s.seq = max(seq, maxID(loaded))
	s.logger.Debug("note store opened", "count", len(loaded), "seq", s.seq)
	return s, nil
}

// List returns a copy of every note in storage order.
func (s *Store) List() []types.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.notes)
}

// Len returns the number of notes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}

// Get returns the note with the given id or ErrNotFound.
func (s *Store) Get(id int64) (types.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := indexOf(s.notes, id)
	if idx < 0 {
		return types.Note{}, fmt.Errorf("note %d: %w", id, types.ErrNotFound)
	}
	return s.notes[idx], nil
}

// Create validates and trims the draft, persists a new note and appends it.
func (s *Store) Create(ctx context.Context, d types.Draft) (types.Note, error) {
	if err := d.Validate(); err != nil {
		return types.Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := types.NewNote(d, s.now())
	if err := s.backend.Insert(ctx, &n); err != nil {
		return types.Note{}, persistence("creating note", err)
	}
	s.notes = append(s.notes, n)
	s.seq = max(s.seq, n.ID)
	return n, nil
}

// Update overwrites title and content of note id and refreshes its
// updatedAt. The stored image is replaced only when d carries one.
func (s *Store) Update(ctx context.Context, id int64, d types.Draft) (types.Note, error) {
	if err := d.Validate(); err != nil {
		return types.Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.notes, id)
	if idx < 0 {
		return types.Note{}, fmt.Errorf("updating note %d: %w", id, types.ErrNotFound)
	}
	n := s.notes[idx]
	n.Apply(d, s.now())
	if err := s.backend.Update(ctx, n); err != nil {
		return types.Note{}, persistence(fmt.Sprintf("updating note %d", id), err)
	}
	s.notes[idx] = n
	return n, nil
}

// Delete removes note id. Deleting an absent id succeeds without touching
// the backend.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.notes, id)
	if idx < 0 {
		return nil
	}
	if err := s.backend.Delete(ctx, id); err != nil {
		return persistence(fmt.Sprintf("deleting note %d", id), err)
	}
	s.notes = slices.Delete(s.notes, idx, idx+1)
	return nil
}

// ReplaceAll discards the collection and adopts incoming. Records with the
// same id collapse to the last one; records without an id get fresh ids.
func (s *Store) ReplaceAll(ctx context.Context, incoming []types.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, seq, err := upsert(nil, incoming, s.seq)
	if err != nil {
		return err
	}
	if err := s.backend.Replace(ctx, next); err != nil {
		return persistence("replacing notes", err)
	}
	s.notes = next
	s.seq = seq
	return nil
}

// Merge inserts or overwrites incoming notes by id. Later records win over
// earlier ones with the same id; records without an id get fresh ids.
func (s *Store) Merge(ctx context.Context, incoming []types.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, seq, err := upsert(s.notes, incoming, s.seq)
	if err != nil {
		return err
	}
	// Only changed records go to the backend, with ids already resolved.
	changed := append(overwritten(s.notes, next), next[len(s.notes):]...)
	if err := s.backend.Upsert(ctx, changed); err != nil {
		return persistence("merging notes", err)
	}
	s.notes = next
	s.seq = seq
	return nil
}

// upsert applies incoming to a copy of base. Each record is validated and
// its timestamps normalized. Records without an id get ids past seq and
// every incoming id; the advanced sequence is returned. Base is not
// modified.
func upsert(base, incoming []types.Note, seq int64) ([]types.Note, int64, error) {
	next := slices.Clone(base)
	nextID := max(seq, maxID(base), maxID(incoming))

	for i, n := range incoming {
		if types.IsBlank(n.Title, n.Content) {
			return nil, 0, fmt.Errorf("%w: record %d has neither title nor content", types.ErrValidation, i)
		}
		n.CreatedAt = types.Timestamp(n.CreatedAt)
		n.UpdatedAt = types.Timestamp(n.UpdatedAt)
		if n.ID == 0 {
			nextID++
			n.ID = nextID
		}
		if idx := indexOf(next, n.ID); idx >= 0 {
			next[idx] = n
			continue
		}
		next = append(next, n)
	}
	return next, nextID, nil
}

// overwritten returns the notes in next that replaced a different value in
// prev at the same position.
func overwritten(prev, next []types.Note) []types.Note {
	var out []types.Note
	for i := range prev {
		if next[i] != prev[i] {
			out = append(out, next[i])
		}
	}
	return out
}

func persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, types.ErrPersistence, err)
}

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
