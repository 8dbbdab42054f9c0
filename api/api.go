package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/opshelm/worklog/pkg/worklog"
)

// Server is the HTTP server for the worklog system.
type Server struct {
	config  Config
	service *worklog.Service
	logger  *slog.Logger
	app     *fiber.App
}

// NewServer creates a new API server. The MCP handler is injected so the
// tool surface and the plain HTTP surface share one listener.
func NewServer(config Config, service *worklog.Service, mcpHandler http.Handler, logger *slog.Logger) (*Server, error) {
	if service == nil {
		return nil, errors.New("worklog service is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:  config,
		service: service,
		logger:  logger,
		app:     app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/stats", s.handleStats)

	if mcpHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(mcpHandler))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
