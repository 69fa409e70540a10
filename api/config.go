// Package api hosts the cortex HTTP surface: a health check and the MCP
// streamable HTTP endpoint.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// MCPPath is the route the MCP handler is mounted on (defaults to "/mcp").
	MCPPath string
}
