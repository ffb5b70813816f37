// Package server exposes a note store over HTTP with fiber.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/jotter/internal/notes"
	"github.com/mesh-intelligence/jotter/pkg/types"
)

// Defaults applied by New when a Config field is empty.
const (
	DefaultListen      = ":3000"
	DefaultCORSOrigins = "*"
	// DefaultBodyLimit leaves room for notes carrying image data URLs.
	DefaultBodyLimit = 32 << 20

	shutdownTimeout = 10 * time.Second
	accessLogFormat = "${time} | ${locals:requestid} | ${status} | ${latency} | ${method} | ${path} | ${error}\n"
)

// Config holds the HTTP surface settings.
type Config struct {
	Listen      string
	StaticDir   string
	CORSOrigins string
	PageSize    int
	BodyLimit   int
	// Backend names the storage variant for the health endpoint.
	Backend string
}

// Server serves the notes API.
type Server struct {
	app       *fiber.App
	store     *notes.Store
	config    Config
	logger    *slog.Logger
	accessLog io.Writer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for server errors and lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAccessLog sets where per-request access lines are written.
// A nil writer disables the access log.
func WithAccessLog(w io.Writer) Option {
	return func(s *Server) {
		s.accessLog = w
	}
}

// New builds the fiber app and registers every route.
func New(store *notes.Store, config Config, opts ...Option) *Server {
	if config.Listen == "" {
		config.Listen = DefaultListen
	}
	if config.CORSOrigins == "" {
		config.CORSOrigins = DefaultCORSOrigins
	}
	if config.BodyLimit <= 0 {
		config.BodyLimit = DefaultBodyLimit
	}
	if config.PageSize < 1 {
		config.PageSize = types.DefaultPageSize
	}

	s := &Server{
		store:     store,
		config:    config,
		logger:    slog.Default(),
		accessLog: os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "jotter",
		DisableStartupMessage: true,
		BodyLimit:             config.BodyLimit,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(requestid.New(requestid.Config{Generator: newRequestID}))
	if s.accessLog != nil {
		s.app.Use(logger.New(logger.Config{Format: accessLogFormat, Output: s.accessLog}))
	}
	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{AllowOrigins: config.CORSOrigins}))

	s.routes()

	if config.StaticDir != "" {
		s.app.Static("/", config.StaticDir)
	}
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on Config.Listen until ctx is cancelled, then shuts down,
// waiting for in-flight requests up to a fixed timeout.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening for requests", "addr", s.config.Listen, "backend", s.config.Backend)
		errc <- s.app.Listen(s.config.Listen)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, types.ErrValidation), errors.Is(err, types.ErrFormat):
		return fiber.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// handleError writes every error as {"error": "...", "kind": "..."}. Kind
// names the domain sentinel and is omitted when there is none.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"requestid", c.Locals("requestid"),
			"err", err)
	}
	body := fiber.Map{"error": err.Error()}
	if kind := types.KindOf(err); kind != "" {
		body["kind"] = kind
	}
	return c.Status(code).JSON(body)
}
