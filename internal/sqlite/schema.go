package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// createNotes matches the table layout of existing note databases, with the
// image column added.
const createNotes = `CREATE TABLE IF NOT EXISTS notes (
    id INTEGER PRIMARY KEY,
    title TEXT,
    content TEXT,
    createdAt TEXT,
    updatedAt TEXT,
    image TEXT
);`

const idxNotesUpdated = `CREATE INDEX IF NOT EXISTS idx_notes_updated ON notes(updatedAt);`

// createNoteSeq holds the highest note id ever assigned. The notes table has
// no AUTOINCREMENT in existing databases, so SQLite alone would hand out the
// id of a deleted newest row again.
const createNoteSeq = `CREATE TABLE IF NOT EXISTS note_seq (
    name TEXT PRIMARY KEY,
    value INTEGER NOT NULL
);`

const seedNoteSeq = `INSERT OR IGNORE INTO note_seq (name, value) VALUES ('notes', 0);`

// raiseNoteSeq catches the sequence up with rows written by older versions.
const raiseNoteSeq = `UPDATE note_seq
SET value = max(value, (SELECT COALESCE(MAX(id), 0) FROM notes))
WHERE name = 'notes';`

// schemaDDL lists the statements run on every Attach. All are idempotent.
var schemaDDL = []string{
	createNotes,
	idxNotesUpdated,
	createNoteSeq,
	seedNoteSeq,
}

type columnInfo struct {
	CID          int     `db:"cid"`
	Name         string  `db:"name"`
	Type         string  `db:"type"`
	NotNull      int     `db:"notnull"`
	DefaultValue *string `db:"dflt_value"`
	PK           int     `db:"pk"`
}

// migrate creates the schema and adds columns missing from databases
// written by older versions.
func migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	if err := addImageColumn(ctx, db); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, raiseNoteSeq); err != nil {
		return fmt.Errorf("updating note sequence: %w", err)
	}
	return nil
}

func addImageColumn(ctx context.Context, db *sqlx.DB) error {
	var cols []columnInfo
	if err := db.SelectContext(ctx, &cols, "PRAGMA table_info(notes)"); err != nil {
		return fmt.Errorf("reading notes columns: %w", err)
	}
	for _, c := range cols {
		if c.Name == "image" {
			return nil
		}
	}
	if _, err := db.ExecContext(ctx, "ALTER TABLE notes ADD COLUMN image TEXT"); err != nil {
		return fmt.Errorf("adding image column: %w", err)
	}
	return nil
}
