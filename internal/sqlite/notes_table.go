package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/jotter/pkg/types"
)

// TimeLayout is how timestamps are stored. Fixed width, so text order is
// time order.
const TimeLayout = "2006-01-02T15:04:05.000Z"

const (
	selectNotes = `SELECT id, title, content, createdAt, updatedAt, image
FROM notes ORDER BY updatedAt DESC, id DESC`

	insertNote = `INSERT INTO notes (id, title, content, createdAt, updatedAt, image)
VALUES (:id, :title, :content, :createdAt, :updatedAt, :image)`

	upsertNote = `INSERT OR REPLACE INTO notes (id, title, content, createdAt, updatedAt, image)
VALUES (:id, :title, :content, :createdAt, :updatedAt, :image)`

	updateNote = `UPDATE notes
SET title = :title, content = :content, createdAt = :createdAt, updatedAt = :updatedAt, image = :image
WHERE id = :id`

	deleteNote = `DELETE FROM notes WHERE id = ?`

	selectNoteSeq = `SELECT value FROM note_seq WHERE name = 'notes'`

	advanceNoteSeq = `UPDATE note_seq SET value = max(value, ?) WHERE name = 'notes'`
)

// noteRow is the column layout of the notes table. Columns other than id are
// nullable in databases created by older versions.
type noteRow struct {
	ID        int64          `db:"id"`
	Title     sql.NullString `db:"title"`
	Content   sql.NullString `db:"content"`
	CreatedAt sql.NullString `db:"createdAt"`
	UpdatedAt sql.NullString `db:"updatedAt"`
	Image     sql.NullString `db:"image"`
}

func dehydrate(n types.Note) noteRow {
	return noteRow{
		ID:        n.ID,
		Title:     sql.NullString{String: n.Title, Valid: true},
		Content:   sql.NullString{String: n.Content, Valid: true},
		CreatedAt: sql.NullString{String: formatTime(n.CreatedAt), Valid: true},
		UpdatedAt: sql.NullString{String: formatTime(n.UpdatedAt), Valid: true},
		Image:     sql.NullString{String: n.Image, Valid: n.Image != ""},
	}
}

// hydrate converts a row to a note. A timestamp that does not parse is
// logged and replaced so one damaged row does not hide the rest: a bad
// createdAt becomes the zero time, a bad updatedAt becomes createdAt.
func (b *Backend) hydrate(r noteRow) types.Note {
	created, err := parseTime(r.CreatedAt.String)
	if err != nil {
		b.logger.Warn("note has an unreadable createdAt; using zero time",
			"id", r.ID, "value", r.CreatedAt.String, "err", err)
	}
	updated, err := parseTime(r.UpdatedAt.String)
	if err != nil {
		b.logger.Warn("note has an unreadable updatedAt; using createdAt",
			"id", r.ID, "value", r.UpdatedAt.String, "err", err)
	}
	if updated.IsZero() {
		updated = created
	}
	return types.Note{
		ID:        r.ID,
		Title:     r.Title.String,
		Content:   r.Content.String,
		Image:     r.Image.String,
		CreatedAt: created,
		UpdatedAt: updated,
	}
}

func formatTime(t time.Time) string {
	return types.Timestamp(t).Format(TimeLayout)
}

// parseTime accepts the stored layout and any RFC 3339 variant. An empty
// value yields the zero time.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return types.Timestamp(t), nil
}

// Load returns every note, freshest first.
func (b *Backend) Load(ctx context.Context) ([]types.Note, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	var rows []noteRow
	if err := db.SelectContext(ctx, &rows, selectNotes); err != nil {
		return nil, fmt.Errorf("loading notes: %w", err)
	}
	notes := make([]types.Note, 0, len(rows))
	for _, r := range rows {
		notes = append(notes, b.hydrate(r))
	}
	return notes, nil
}

// Sequence returns the highest id ever assigned or stored.
func (b *Backend) Sequence(ctx context.Context) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	db, err := b.conn()
	if err != nil {
		return 0, err
	}
	var seq int64
	if err := db.GetContext(ctx, &seq, selectNoteSeq); err != nil {
		return 0, fmt.Errorf("reading note sequence: %w", err)
	}
	return seq, nil
}

// Insert stores n under the id after the sequence and sets n.ID.
func (b *Backend) Insert(ctx context.Context, n *types.Note) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	db, err := b.conn()
	if err != nil {
		return err
	}

	row := dehydrate(*n)
	err = inTx(ctx, db, func(tx *sqlx.Tx) error {
		var seq int64
		if err := tx.GetContext(ctx, &seq, selectNoteSeq); err != nil {
			return fmt.Errorf("reading note sequence: %w", err)
		}
		row.ID = seq + 1
		if _, err := tx.NamedExecContext(ctx, insertNote, row); err != nil {
			return fmt.Errorf("inserting note: %w", err)
		}
		if _, err := tx.ExecContext(ctx, advanceNoteSeq, row.ID); err != nil {
			return fmt.Errorf("advancing note sequence: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	n.ID = row.ID
	return nil
}

// Update rewrites the row with n.ID. Returns ErrNotFound if there is none.
func (b *Backend) Update(ctx context.Context, n types.Note) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	db, err := b.conn()
	if err != nil {
		return err
	}

	res, err := db.NamedExecContext(ctx, updateNote, dehydrate(n))
	if err != nil {
		return fmt.Errorf("updating note %d: %w", n.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating note %d: %w", n.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("updating note %d: %w", n.ID, types.ErrNotFound)
	}
	return nil
}

// Delete removes the row with the given id. Deleting an absent id succeeds.
func (b *Backend) Delete(ctx context.Context, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	db, err := b.conn()
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, deleteNote, id); err != nil {
		return fmt.Errorf("deleting note %d: %w", id, err)
	}
	return nil
}

// Upsert inserts or replaces each note in one transaction. Later entries
// overwrite earlier ones with the same id.
func (b *Backend) Upsert(ctx context.Context, notes []types.Note) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	db, err := b.conn()
	if err != nil {
		return err
	}
	return inTx(ctx, db, func(tx *sqlx.Tx) error {
		return writeAll(ctx, tx, notes)
	})
}

// Replace deletes every row and stores notes, in one transaction.
func (b *Backend) Replace(ctx context.Context, notes []types.Note) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	db, err := b.conn()
	if err != nil {
		return err
	}
	return inTx(ctx, db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM notes"); err != nil {
			return fmt.Errorf("clearing notes: %w", err)
		}
		return writeAll(ctx, tx, notes)
	})
}

// writeAll inserts or replaces notes by id. Notes without an id get fresh
// ids past both the sequence and every id in notes; the sequence is advanced
// to cover everything written.
func writeAll(ctx context.Context, tx *sqlx.Tx, notes []types.Note) error {
	var seq int64
	if err := tx.GetContext(ctx, &seq, selectNoteSeq); err != nil {
		return fmt.Errorf("reading note sequence: %w", err)
	}
	for _, n := range notes {
		seq = max(seq, n.ID)
	}
	for i, n := range notes {
		if n.ID == 0 {
			seq++
			n.ID = seq
		}
		if _, err := tx.NamedExecContext(ctx, upsertNote, dehydrate(n)); err != nil {
			return fmt.Errorf("writing note %d (record %d): %w", n.ID, i, err)
		}
	}
	if _, err := tx.ExecContext(ctx, advanceNoteSeq, seq); err != nil {
		return fmt.Errorf("advancing note sequence: %w", err)
	}
	return nil
}

// inTx runs fn inside a transaction, rolling back if fn fails.
func inTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
