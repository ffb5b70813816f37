// Package transfer reads and writes the portable notes file: a JSON array of
// note objects.
package transfer

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/mesh-intelligence/jotter/pkg/types"
)

// Export file naming.
const (
	FileName    = "notes.json"
	ContentType = "application/json"
)

// Mode selects how imported notes combine with the existing collection.
type Mode string

// Import modes.
const (
	// ModeMerge inserts or overwrites by id and keeps everything else.
	ModeMerge Mode = "merge"
	// ModeReplace discards the existing collection first.
	ModeReplace Mode = "replace"
)

// ParseMode maps "" and "merge" to ModeMerge and "replace" to ModeReplace.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeMerge:
		return ModeMerge, nil
	case ModeReplace:
		return ModeReplace, nil
	}
	return "", fmt.Errorf("%w: unknown import mode %q", types.ErrValidation, s)
}

// Sink receives decoded notes. *notes.Store implements it.
type Sink interface {
	Merge(ctx context.Context, notes []types.Note) error
	ReplaceAll(ctx context.Context, notes []types.Note) error
}

// Export writes notes as an indented JSON array ordered by id, so the same
// set always produces the same bytes.
func Export(w io.Writer, notes []types.Note) error {
	sorted := slices.Clone(notes)
	if sorted == nil {
		sorted = []types.Note{}
	}
	slices.SortStableFunc(sorted, func(a, b types.Note) int { return cmp.Compare(a.ID, b.ID) })

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(sorted); err != nil {
		return fmt.Errorf("encoding notes: %w", err)
	}
	return nil
}

// record mirrors a note object with every field optional so missing fields
// can be told apart from zero values.
type record struct {
	ID        *int64     `json:"id"`
	Title     *string    `json:"title"`
	Content   *string    `json:"content"`
	Image     *string    `json:"image"`
	CreatedAt *time.Time `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

// Decode parses a notes file. It fails with types.ErrFormat when the input
// is not a JSON array of note objects and with types.ErrValidation when a
// record has neither title nor content. Missing timestamps default to now;
// a missing updatedAt defaults to createdAt.
func Decode(r io.Reader) ([]types.Note, error) {
	return decode(r, types.Now())
}

func decode(r io.Reader, now time.Time) ([]types.Note, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading notes: %w", err)
	}

	var raw []json.RawMessage
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array of notes", types.ErrFormat)
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrFormat, err)
	}

	notes := make([]types.Note, 0, len(raw))
	for i, msg := range raw {
		n, err := decodeRecord(i, msg, now)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, nil
}

func decodeRecord(i int, msg json.RawMessage, now time.Time) (types.Note, error) {
	if b := bytes.TrimSpace(msg); len(b) == 0 || b[0] != '{' {
		return types.Note{}, fmt.Errorf("%w: record %d is not an object", types.ErrFormat, i)
	}

	var rec record
	if err := json.Unmarshal(msg, &rec); err != nil {
		return types.Note{}, fmt.Errorf("%w: record %d: %v", types.ErrFormat, i, err)
	}

	var n types.Note
	if rec.ID != nil {
		if *rec.ID < 0 {
			return types.Note{}, fmt.Errorf("%w: record %d has negative id %d", types.ErrFormat, i, *rec.ID)
		}
		n.ID = *rec.ID
	}
	if rec.Title != nil {
		n.Title = *rec.Title
	}
	if rec.Content != nil {
		n.Content = *rec.Content
	}
	if rec.Image != nil {
		n.Image = *rec.Image
	}
	if types.IsBlank(n.Title, n.Content) {
		return types.Note{}, fmt.Errorf("%w: record %d has neither title nor content", types.ErrValidation, i)
	}

	n.CreatedAt = now
	if rec.CreatedAt != nil {
		n.CreatedAt = *rec.CreatedAt
	}
	n.UpdatedAt = n.CreatedAt
	if rec.UpdatedAt != nil {
		n.UpdatedAt = *rec.UpdatedAt
	}
	n.CreatedAt = types.Timestamp(n.CreatedAt)
	n.UpdatedAt = types.Timestamp(n.UpdatedAt)
	return n, nil
}

// Import decodes r and hands the notes to sink. Nothing reaches sink when
// decoding fails. It returns the number of records read.
func Import(ctx context.Context, sink Sink, r io.Reader, mode Mode) (int, error) {
	notes, err := Decode(r)
	if err != nil {
		return 0, err
	}
	switch mode {
	case ModeReplace:
		err = sink.ReplaceAll(ctx, notes)
	case ModeMerge, "":
		err = sink.Merge(ctx, notes)
	default:
		return 0, fmt.Errorf("%w: unknown import mode %q", types.ErrValidation, mode)
	}
	if err != nil {
		return 0, err
	}
	return len(notes), nil
}
