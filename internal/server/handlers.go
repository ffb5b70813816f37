package server

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/mesh-intelligence/jotter/internal/transfer"
	"github.com/mesh-intelligence/jotter/internal/view"
	"github.com/mesh-intelligence/jotter/pkg/types"
)

const noteLocal = "note"

// noteRequest is the body of POST /api/notes. Timestamps sent by the client
// are ignored.
type noteRequest struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Image   string `json:"image"`
}

func (r noteRequest) draft() types.Draft {
	return types.Draft{Title: r.Title, Content: r.Content, Image: r.Image}
}

func (s *Server) routes() {
	api := s.app.Group("/api")
	api.Get("/health", s.health)

	api.Route("/notes", func(notes fiber.Router) {
		notes.Get("/", s.listNotes)
		notes.Post("/", s.saveNote)
		notes.Get("/view", s.viewNotes)
		notes.Delete("/:noteID", s.deleteNote)
		notes.Get("/:noteID", s.loadNoteFromRoute("noteID"), s.getNote)
	})

	api.Get("/export", s.exportNotes)
	api.Post("/import", s.importNotes)
}

// loadNoteFromRoute resolves the note named by a route parameter and stores
// it in the request locals.
func (s *Server) loadNoteFromRoute(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := routeID(c, param)
		if err != nil {
			return err
		}
		n, err := s.store.Get(id)
		if err != nil {
			return err
		}
		c.Locals(noteLocal, n)
		return c.Next()
	}
}

func routeID(c *fiber.Ctx, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid note id %q", types.ErrValidation, c.Params(param))
	}
	return id, nil
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"backend": s.config.Backend,
		"notes":   s.store.Len(),
	})
}

// listNotes returns every note, freshest first.
func (s *Server) listNotes(c *fiber.Ctx) error {
	return c.JSON(view.Order(s.store.List()))
}

func (s *Server) viewNotes(c *fiber.Ctx) error {
	state := view.NewState().WithSearch(c.Query("q")).WithPage(c.QueryInt("page", 1))
	return c.JSON(view.Apply(s.store.List(), state.Query(c.QueryInt("size", s.config.PageSize))))
}

func (s *Server) getNote(c *fiber.Ctx) error {
	return c.JSON(c.Locals(noteLocal).(types.Note))
}

// saveNote creates a note when the body has no id and updates it otherwise.
func (s *Server) saveNote(c *fiber.Ctx) error {
	var req noteRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fmt.Errorf("%w: %v", types.ErrFormat, err)
	}

	if req.ID == 0 {
		n, err := s.store.Create(c.UserContext(), req.draft())
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": n.ID})
	}

	if _, err := s.store.Update(c.UserContext(), req.ID, req.draft()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) deleteNote(c *fiber.Ctx) error {
	id, err := routeID(c, "noteID")
	if err != nil {
		return err
	}
	if err := s.store.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) exportNotes(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := transfer.Export(&buf, s.store.List()); err != nil {
		return err
	}
	c.Attachment(transfer.FileName)
	c.Set(fiber.HeaderContentType, transfer.ContentType)
	return c.Send(buf.Bytes())
}

func (s *Server) importNotes(c *fiber.Ctx) error {
	mode, err := transfer.ParseMode(c.Query("mode"))
	if err != nil {
		return err
	}
	n, err := transfer.Import(c.UserContext(), s.store, bytes.NewReader(c.Body()), mode)
	if err != nil {
		return err
	}
	s.logger.Info("imported notes", "count", n, "mode", mode)
	return c.JSON(fiber.Map{"success": true, "imported": n})
}
