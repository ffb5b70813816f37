package notes

import (
	"context"
	"os"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mesh-intelligence/jotter/internal/blob"
	"github.com/mesh-intelligence/jotter/internal/sqlite"
	"github.com/mesh-intelligence/jotter/pkg/types"
)

// TestStoreWriteThrough replays random mutation sequences against a store
// and a plain map, then reopens the store from its backend. All three must
// agree after every run.
func TestStoreWriteThrough(t *testing.T) {
	backends := map[string]func() types.Backend{
		types.BackendBlob:   func() types.Backend { return blob.NewBackend() },
		types.BackendSQLite: func() types.Backend { return sqlite.NewBackend() },
	}

	for kind, newBackend := range backends {
		t.Run(kind, func(t *testing.T) {
			rapid.Check(t, func(rt *rapid.T) {
				dir, err := os.MkdirTemp(t.TempDir(), "run-")
				require.NoError(rt, err)

				backend := newBackend()
				require.NoError(rt, backend.Attach(types.Config{Backend: kind, DataDir: dir}))
				defer backend.Detach()

				ctx := context.Background()
				store, err := Open(ctx, backend, WithClock(stepClock()))
				require.NoError(rt, err)

				model := map[int64]types.Note{}
				var issued int64
				text := rapid.StringMatching(`[a-z ]{0,6}`)

				steps := rapid.IntRange(1, 25).Draw(rt, "steps")
				for range steps {
					ids := make([]int64, 0, len(model)+1)
					for id := range model {
						ids = append(ids, id)
					}
					slices.Sort(ids)
					ids = append(ids, 10_000)
					draft := types.Draft{Title: text.Draw(rt, "title"), Content: text.Draw(rt, "content")}

					switch rapid.IntRange(0, 2).Draw(rt, "op") {
					case 0:
						n, err := store.Create(ctx, draft)
						if types.IsBlank(draft.Title, draft.Content) {
							require.ErrorIs(rt, err, types.ErrValidation)
							continue
						}
						require.NoError(rt, err)
						require.Greater(rt, n.ID, issued, "ids are never reused")
						issued = n.ID
						model[n.ID] = n
					case 1:
						id := rapid.SampledFrom(ids).Draw(rt, "id")
						n, err := store.Update(ctx, id, draft)
						switch {
						case types.IsBlank(draft.Title, draft.Content):
							require.ErrorIs(rt, err, types.ErrValidation)
						case model[id].ID == 0:
							require.ErrorIs(rt, err, types.ErrNotFound)
						default:
							require.NoError(rt, err)
							want := model[id]
							want.Apply(draft, n.UpdatedAt)
							require.Equal(rt, want, n)
							model[id] = n
						}
					case 2:
						id := rapid.SampledFrom(ids).Draw(rt, "id")
						require.NoError(rt, store.Delete(ctx, id))
						delete(model, id)
					}
				}

				reopened, err := Open(ctx, backend)
				require.NoError(rt, err)

				require.ElementsMatch(rt, values(model), store.List())
				require.ElementsMatch(rt, store.List(), reopened.List())
			})
		})
	}
}

func values(m map[int64]types.Note) []types.Note {
	out := make([]types.Note, 0, len(m))
	for _, n := range m {
		out = append(out, n)
	}
	return out
}
