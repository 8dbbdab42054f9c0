// Package api provides the HTTP server exposing the worklog over MCP plus
// a few plain endpoints for health checks and store status.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8084")
	ListenAddr string
}
