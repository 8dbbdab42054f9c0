// Package mcp provides an MCP (Model Context Protocol) server for the
// worklog system.
package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opshelm/worklog/pkg/plane"
	"github.com/opshelm/worklog/pkg/utils"
	"github.com/opshelm/worklog/pkg/worklog"
)

type Config struct {
	// Service implements the worklog operations backing every tool
	Service *worklog.Service

	// Plane enables the project tracker tools when configured
	Plane *plane.Client

	// PlaneDB enables the page and workspace tools that need direct
	// database access (optional, pages are not in Plane's public API)
	PlaneDB *plane.DBClient

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the worklog tools, plus the Plane
// tools when a Plane client is configured.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "worklog",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if c.Noop {
		// return the empty MCP server with no tools configured
		// if the noop flag is set (i.e., MCP capabilities are disabled)
		s.mcpServer = mcpServer
		return s, nil
	}

	if c.Service == nil {
		return nil, errors.New("worklog service is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	s.addWorklogTools(mcpServer)
	s.addGraphTools(mcpServer)
	s.addCurationTools(mcpServer)
	s.addChatTools(mcpServer)

	// Plane tools are only registered when the tracker is configured
	if c.Plane != nil {
		s.addPlaneTools(mcpServer)
	}
	if c.PlaneDB != nil {
		s.addPlanePageTools(mcpServer)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server, or nil when the
// server was built in noop mode.
func (s *Server) Handler() http.Handler {
	if s.handler == nil {
		return nil
	}

	return s.handler
}

// errResult builds an error tool result. Tool failures travel back to the
// caller as IsError content, never as a Go error, so the MCP session stays
// up.
func errResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// callerError reports whether err was caused by the tool call's own input
// rather than by the infrastructure underneath.
func callerError(err error) bool {
	var validation worklog.ValidationError
	var conflict worklog.ConflictError
	var reference worklog.ReferenceError
	var notFound worklog.NotFoundError

	return errors.As(err, &validation) ||
		errors.As(err, &conflict) ||
		errors.As(err, &reference) ||
		errors.As(err, &notFound)
}

// failure converts a service error into a tool result. Infrastructure
// failures are logged; input errors already carry a caller-facing message.
func (s *Server) failure(tool string, err error) *mcp.CallToolResult {
	if !callerError(err) {
		s.config.Logger.Error("tool call failed", "tool", tool, "error", err)
	}

	return errResult("%v", err)
}

// jsonResult wraps a structured output in a tool result. Per MCP spec,
// tools returning structured content should also return serialized JSON in
// a TextContent block for backwards compatibility.
func jsonResult[T any](output T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		var zero T
		return errResult("Failed to serialize results: %v", err), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
