package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/mesh-intelligence/jotter/internal/notes"
	"github.com/mesh-intelligence/jotter/internal/storage"
	"github.com/mesh-intelligence/jotter/internal/transfer"
	"github.com/mesh-intelligence/jotter/internal/view"
	"github.com/mesh-intelligence/jotter/pkg/client"
	"github.com/mesh-intelligence/jotter/pkg/types"
)

// noteService is what the note commands need. It is backed either by local
// storage or by a remote server.
type noteService interface {
	List(ctx context.Context) ([]types.Note, error)
	View(ctx context.Context, state view.State) (types.Page, error)
	Get(ctx context.Context, id int64) (types.Note, error)
	Create(ctx context.Context, d types.Draft) (int64, error)
	Update(ctx context.Context, id int64, d types.Draft) error
	Delete(ctx context.Context, id int64) error
	Export(ctx context.Context, w io.Writer) error
	Import(ctx context.Context, r io.Reader, mode transfer.Mode) (int, error)
	Close() error
}

// openService returns a remote service when --server (or the server config
// key) is set, and a local one otherwise. The caller must Close it.
func (a *app) openService(ctx context.Context) (noteService, error) {
	if a.settings.Server != "" {
		a.logger.Debug("using remote server", "url", a.settings.Server)
		return &remoteService{c: client.NewClient(a.settings.Server)}, nil
	}

	st, err := storage.Open(a.settings.StorageConfig(), storage.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	store, err := notes.Open(ctx, st, notes.WithLogger(a.logger))
	if err != nil {
		st.Detach()
		return nil, err
	}
	return &localService{storage: st, store: store, pageSize: a.settings.PageSize}, nil
}

type localService struct {
	storage  *storage.Storage
	store    *notes.Store
	pageSize int
}

func (s *localService) List(context.Context) ([]types.Note, error) {
	return view.Order(s.store.List()), nil
}

func (s *localService) View(_ context.Context, state view.State) (types.Page, error) {
	return view.Apply(s.store.List(), state.Query(s.pageSize)), nil
}

func (s *localService) Get(_ context.Context, id int64) (types.Note, error) {
	return s.store.Get(id)
}

func (s *localService) Create(ctx context.Context, d types.Draft) (int64, error) {
	n, err := s.store.Create(ctx, d)
	return n.ID, err
}

func (s *localService) Update(ctx context.Context, id int64, d types.Draft) error {
	_, err := s.store.Update(ctx, id, d)
	return err
}

func (s *localService) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

func (s *localService) Export(_ context.Context, w io.Writer) error {
	return transfer.Export(w, s.store.List())
}

func (s *localService) Import(ctx context.Context, r io.Reader, mode transfer.Mode) (int, error) {
	return transfer.Import(ctx, s.store, r, mode)
}

func (s *localService) Close() error {
	if err := s.storage.Detach(); err != nil {
		return fmt.Errorf("detach storage: %w", err)
	}
	return nil
}

type remoteService struct {
	c *client.Client
}

func (s *remoteService) List(ctx context.Context) ([]types.Note, error) {
	return s.c.ListNotes(ctx)
}

func (s *remoteService) View(ctx context.Context, state view.State) (types.Page, error) {
	return s.c.View(ctx, state.Search, state.Page)
}

func (s *remoteService) Get(ctx context.Context, id int64) (types.Note, error) {
	return s.c.GetNote(ctx, id)
}

func (s *remoteService) Create(ctx context.Context, d types.Draft) (int64, error) {
	return s.c.CreateNote(ctx, d)
}

func (s *remoteService) Update(ctx context.Context, id int64, d types.Draft) error {
	return s.c.UpdateNote(ctx, id, d)
}

func (s *remoteService) Delete(ctx context.Context, id int64) error {
	return s.c.DeleteNote(ctx, id)
}

func (s *remoteService) Export(ctx context.Context, w io.Writer) error {
	return s.c.Export(ctx, w)
}

func (s *remoteService) Import(ctx context.Context, r io.Reader, mode transfer.Mode) (int, error) {
	return s.c.Import(ctx, r, string(mode))
}

func (s *remoteService) Close() error { return nil }
