package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/docqa/internal/catalog"
	"github.com/bull/docqa/internal/orchestrator"
)

// Answerer answers a query across documents.
type Answerer interface {
	Answer(ctx context.Context, query string, exclude []string) (*orchestrator.Response, error)
}

// DocumentLister lists indexed documents.
type DocumentLister interface {
	List(ctx context.Context) ([]catalog.Document, error)
}

// IndexStats reports on the semantic index.
type IndexStats interface {
	Count(ctx context.Context, documentID string) (int, error)
	Health(ctx context.Context) error
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Answerer  Answerer
	Documents DocumentLister
	Index     IndexStats
	// Backend names the vector store, reported by get_index_status.
	Backend string
	Version string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "docqa",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_documents",
		Description: "Ask a question across all uploaded documents. Returns the most relevant paragraphs per document with page and paragraph citations, and a summary of the themes they share.",
	}, makeQueryHandler(cfg.Answerer))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the uploaded documents with their ids and filenames. Use the ids with query_documents exclude_docs.",
	}, makeListHandler(cfg.Documents))

	if cfg.Index != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "get_index_status",
			Description: "Get the current status of the document index: backend, connectivity, document and paragraph counts.",
		}, makeStatusHandler(cfg.Documents, cfg.Index, cfg.Backend))
	}

	return &Server{server: server}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
