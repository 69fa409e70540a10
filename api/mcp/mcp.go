// Package mcp provides an MCP (Model Context Protocol) server exposing Cortex
// documents, callables and copilots as tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/cortex/pkg/chat"
	"github.com/papercomputeco/cortex/pkg/cortex"
	"github.com/papercomputeco/cortex/pkg/utils"
)

// Client is the subset of *cortex.Client the tools call.
type Client interface {
	GetDocument(ctx context.Context, knowledge, documentID string) (*cortex.DocumentResponse, error)
	UploadDocument(ctx context.Context, knowledge, documentID string, doc cortex.CreateDocument) (*cortex.UploadDocumentResponse, error)
	DeleteDocument(ctx context.Context, knowledge, documentID string) (*cortex.DocumentResponse, error)
	RunCallable(ctx context.Context, callableID string, params cortex.CallableParams) (*cortex.RunResponse, error)
	RunChatCompletion(ctx context.Context, req cortex.ChatCompletionRequest) (*chat.Completion, error)
}

// ChatDefaults fill in chat tool arguments the caller leaves empty.
type ChatDefaults struct {
	Version   cortex.Version
	ProjectID string
	Knowledge string
	CopilotID string
}

type Config struct {
	// Client performs the Cortex calls behind every tool.
	Client Client

	// Defaults for the chat tool and for the knowledge argument of the
	// document tools.
	Defaults ChatDefaults

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the Cortex tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "cortex",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Client == nil {
			return nil, errors.New("cortex client is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        getDocumentToolName,
			Description: getDocumentDescription,
		}, s.handleGetDocument)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        uploadDocumentToolName,
			Description: uploadDocumentDescription,
		}, s.handleUploadDocument)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        deleteDocumentToolName,
			Description: deleteDocumentDescription,
		}, s.handleDeleteDocument)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        runCallableToolName,
			Description: runCallableDescription,
		}, s.handleRunCallable)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        chatToolName,
			Description: chatDescription,
		}, s.handleChat)
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

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying server, for connecting custom transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// ServeStdio serves a single session over stdin/stdout until the client
// disconnects or ctx is done.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
