package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Note is the only persisted entity.
type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Image     string    `json:"image,omitempty"` // Self-contained data URL.
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Draft carries the user-editable fields of a note for create and update.
type Draft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Image   string `json:"image,omitempty"`
}

// Domain errors.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("note not found")
	ErrPersistence = errors.New("persistence error")
	ErrFormat      = errors.New("invalid data format")
)

// Timestamp normalizes t to the precision notes are stored with: UTC,
// millisecond resolution.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// Now returns the current time as a note timestamp.
func Now() time.Time {
	return Timestamp(time.Now())
}

// Normalize returns a copy of the draft with title and content trimmed.
func (d Draft) Normalize() Draft {
	return Draft{
		Title:   strings.TrimSpace(d.Title),
		Content: strings.TrimSpace(d.Content),
		Image:   d.Image,
	}
}

// Validate returns ErrValidation when title and content are both empty after
// trimming whitespace.
func (d Draft) Validate() error {
	if IsBlank(d.Title, d.Content) {
		return fmt.Errorf("%w: a note needs a title or content", ErrValidation)
	}
	return nil
}

// IsBlank reports whether title and content are both empty after trimming.
func IsBlank(title, content string) bool {
	return strings.TrimSpace(title) == "" && strings.TrimSpace(content) == ""
}

// NewNote builds an unsaved note from a draft. ID is left zero for the
// backend to assign.
func NewNote(d Draft, now time.Time) Note {
	d = d.Normalize()
	now = Timestamp(now)
	return Note{
		Title:     d.Title,
		Content:   d.Content,
		Image:     d.Image,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Apply overwrites title and content from the draft and refreshes UpdatedAt.
// The image is replaced only when the draft carries one; an empty image never
// erases an existing one. ID and CreatedAt are not touched.
func (n *Note) Apply(d Draft, now time.Time) {
	d = d.Normalize()
	n.Title = d.Title
	n.Content = d.Content
	if d.Image != "" {
		n.Image = d.Image
	}
	n.UpdatedAt = Timestamp(now)
}
