package types

import (
	"context"
	"errors"
)

// Backend persists the note collection. Two implementations exist: a SQLite
// table and a JSON blob under a fixed key. The Note Store is the only caller
// and performs exactly one Backend mutation per successful store mutation.
type Backend interface {
	// Attach connects the backend to the storage described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached
	// if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, operations return ErrDetached.
	Detach() error

	// Load returns every persisted note.
	Load(ctx context.Context) ([]Note, error)

	// Sequence returns the highest ID the backend has ever assigned or
	// stored. It never decreases, so deleted IDs are not handed out again.
	Sequence(ctx context.Context) (int64, error)

	// Insert persists a new note and assigns it the ID after Sequence.
	Insert(ctx context.Context, n *Note) error

	// Update overwrites the stored note with the same ID.
	// Returns ErrNotFound if no note has that ID.
	Update(ctx context.Context, n Note) error

	// Delete removes the note with the given ID. Deleting an absent ID
	// succeeds.
	Delete(ctx context.Context, id int64) error

	// Upsert inserts or replaces each note keyed by ID, atomically. Notes
	// with a zero ID get fresh IDs from the sequence.
	Upsert(ctx context.Context, notes []Note) error

	// Replace discards every stored note and stores notes instead,
	// atomically. The sequence is kept.
	Replace(ctx context.Context, notes []Note) error
}

// Backend lifecycle errors.
var (
	ErrDetached        = errors.New("backend is detached")
	ErrAlreadyAttached = errors.New("backend is already attached")
	ErrInvalidKey      = errors.New("invalid storage key")
)
