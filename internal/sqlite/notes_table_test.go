package sqlite

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/jotter/pkg/types"
)

var base = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func noteAt(title string, offset time.Duration) types.Note {
	return types.NewNote(types.Draft{Title: title}, base.Add(offset))
}

func TestNotes_InsertAssignsRowIDs(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	first := noteAt("first", 0)
	second := noteAt("second", time.Second)
	require.NoError(t, b.Insert(ctx, &first))
	require.NoError(t, b.Insert(ctx, &second))

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
}

func TestNotes_NeverReusesDeletedIDs(t *testing.T) {
	b, dir := setupBackend(t)
	ctx := context.Background()

	first := noteAt("first", 0)
	newest := noteAt("newest", time.Second)
	require.NoError(t, b.Insert(ctx, &first))
	require.NoError(t, b.Insert(ctx, &newest))
	require.NoError(t, b.Delete(ctx, newest.ID))

	next := noteAt("after delete", 2*time.Second)
	require.NoError(t, b.Insert(ctx, &next))
	assert.Equal(t, int64(3), next.ID, "the deleted newest id is not handed out again")

	require.NoError(t, b.Replace(ctx, nil))
	require.NoError(t, b.Detach())
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))

	seq, err := b.Sequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), seq, "the sequence survives replace and reattach")

	later := noteAt("later", 3*time.Second)
	require.NoError(t, b.Insert(ctx, &later))
	assert.Equal(t, int64(4), later.ID)
}

func TestNotes_UpsertAdvancesSequence(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	fresh := noteAt("no id", 0)
	explicit := noteAt("explicit", 0)
	explicit.ID = 9
	require.NoError(t, b.Upsert(ctx, []types.Note{fresh, explicit}))

	notes, err := b.Load(ctx)
	require.NoError(t, err)
	ids := map[string]int64{}
	for _, n := range notes {
		ids[n.Title] = n.ID
	}
	assert.Equal(t, int64(10), ids["no id"], "fresh ids skip past ids later in the batch")
	assert.Equal(t, int64(9), ids["explicit"])

	seq, err := b.Sequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), seq)

	require.NoError(t, b.Delete(ctx, 10))
	n := noteAt("next", 0)
	require.NoError(t, b.Insert(ctx, &n))
	assert.Equal(t, int64(11), n.ID)
}

func TestNotes_LoadKeepsRowsWithBadTimestamps(t *testing.T) {
	b := NewBackend(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	ctx := context.Background()

	good := noteAt("good", 0)
	badCreated := noteAt("bad created", time.Minute)
	badUpdated := noteAt("bad updated", 2*time.Minute)
	for _, n := range []*types.Note{&good, &badCreated, &badUpdated} {
		require.NoError(t, b.Insert(ctx, n))
	}
	_, err := b.db.ExecContext(ctx, `UPDATE notes SET createdAt = 'yesterday' WHERE id = ?`, badCreated.ID)
	require.NoError(t, err)
	_, err = b.db.ExecContext(ctx, `UPDATE notes SET updatedAt = 'soon' WHERE id = ?`, badUpdated.ID)
	require.NoError(t, err)

	notes, err := b.Load(ctx)
	require.NoError(t, err, "damaged rows do not fail the load")
	require.Len(t, notes, 3)

	byTitle := map[string]types.Note{}
	for _, n := range notes {
		byTitle[n.Title] = n
	}
	assert.Equal(t, good, byTitle["good"])
	assert.True(t, byTitle["bad created"].CreatedAt.IsZero())
	assert.Equal(t, badCreated.UpdatedAt, byTitle["bad created"].UpdatedAt)
	assert.Equal(t, badUpdated.CreatedAt, byTitle["bad updated"].UpdatedAt, "a bad updatedAt falls back to createdAt")
}

func TestNotes_LoadOrder(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	older := noteAt("older", 0)
	newer := noteAt("newer", time.Hour)
	tieLow := noteAt("tie low", 30*time.Minute)
	tieHigh := noteAt("tie high", 30*time.Minute)
	for _, n := range []*types.Note{&older, &newer, &tieLow, &tieHigh} {
		require.NoError(t, b.Insert(ctx, n))
	}

	notes, err := b.Load(ctx)
	require.NoError(t, err)

	var titles []string
	for _, n := range notes {
		titles = append(titles, n.Title)
	}
	assert.Equal(t, []string{"newer", "tie high", "tie low", "older"}, titles)
}

func TestNotes_RoundTripFields(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	n := types.NewNote(types.Draft{
		Title:   "Groceries",
		Content: "eggs\nmilk",
		Image:   "data:image/png;base64,iVBORw0KGgo=",
	}, time.Date(2024, 2, 29, 23, 59, 59, 987654321, time.UTC))
	require.NoError(t, b.Insert(ctx, &n))

	notes, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, n, notes[0])
	assert.Equal(t, 987*int(time.Millisecond), notes[0].CreatedAt.Nanosecond())
}

func TestNotes_Update(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	n := noteAt("draft", 0)
	require.NoError(t, b.Insert(ctx, &n))

	n.Apply(types.Draft{Title: "final", Content: "done"}, base.Add(time.Minute))
	require.NoError(t, b.Update(ctx, n))

	notes, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, n, notes[0])

	ghost := noteAt("ghost", 0)
	ghost.ID = 404
	assert.ErrorIs(t, b.Update(ctx, ghost), types.ErrNotFound)
}

func TestNotes_Delete(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	keep := noteAt("keep", 0)
	drop := noteAt("drop", 0)
	require.NoError(t, b.Insert(ctx, &keep))
	require.NoError(t, b.Insert(ctx, &drop))

	require.NoError(t, b.Delete(ctx, drop.ID))
	require.NoError(t, b.Delete(ctx, drop.ID), "deleting twice succeeds")
	require.NoError(t, b.Delete(ctx, 999))

	notes, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, keep.ID, notes[0].ID)
}

func TestNotes_Upsert(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	existing := noteAt("existing", 0)
	require.NoError(t, b.Insert(ctx, &existing))

	overwrite := noteAt("overwritten", time.Minute)
	overwrite.ID = existing.ID
	imported := noteAt("imported", 2*time.Minute)
	imported.ID = 7
	dup := noteAt("imported again", 3*time.Minute)
	dup.ID = 7

	require.NoError(t, b.Upsert(ctx, []types.Note{overwrite, imported, dup}))

	notes, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, dup, notes[0])
	assert.Equal(t, overwrite, notes[1])
}

func TestNotes_UpsertIsAtomic(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	ok := noteAt("ok", 0)
	ok.ID = 1
	require.NoError(t, b.Upsert(ctx, []types.Note{ok}))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	other := noteAt("never", 0)
	other.ID = 2
	require.Error(t, b.Upsert(cancelled, []types.Note{other}))

	notes, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "ok", notes[0].Title)
}

func TestNotes_Replace(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		n := noteAt(title, 0)
		require.NoError(t, b.Insert(ctx, &n))
	}

	incoming := noteAt("only", 0)
	incoming.ID = 50
	require.NoError(t, b.Replace(ctx, []types.Note{incoming}))

	notes, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Note{incoming}, notes)

	require.NoError(t, b.Replace(ctx, nil))
	notes, err = b.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "", want: time.Time{}},
		{in: "2024-01-02T03:04:05.678Z", want: time.Date(2024, 1, 2, 3, 4, 5, 678e6, time.UTC)},
		{in: "2024-01-02T03:04:05Z", want: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{in: "2024-01-02T05:04:05.678+02:00", want: time.Date(2024, 1, 2, 3, 4, 5, 678e6, time.UTC)},
		{in: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}
