package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/cortex/pkg/utils"
)

const defaultMCPPath = "/mcp"

// Server is the HTTP server fronting the MCP handler.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server serving mcpHandler on config.MCPPath.
func NewServer(config Config, mcpHandler http.Handler, logger *slog.Logger) (*Server, error) {
	if mcpHandler == nil {
		return nil, errors.New("mcp handler is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if config.MCPPath == "" {
		config.MCPPath = defaultMCPPath
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/version", s.handleVersion)
	app.All(config.MCPPath, adaptor.HTTPHandler(mcpHandler))

	return s, nil
}

// App exposes the fiber app, mainly for in-process testing via app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"mcp_path", s.config.MCPPath,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleVersion(c *fiber.Ctx) error {
	return c.JSON(utils.Build())
}
