package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/kbgraph-mcp/internal/embedder"
	"github.com/dshills/kbgraph-mcp/internal/indexer"
	"github.com/dshills/kbgraph-mcp/internal/searcher"
	"github.com/dshills/kbgraph-mcp/internal/storage"
)

// ServerName is the MCP server name
const ServerName = "kbgraph-mcp"

// Server wraps the MCP server with application dependencies. Stdout
// carries the protocol; all logging must go to stderr.
type Server struct {
	mcp         *server.MCPServer
	coordinator *indexer.Coordinator
	engine      *searcher.Engine
	embedder    embedder.Embedder
	artifacts   storage.Store
}

// NewServer creates a new MCP server instance over an already wired
// pipeline.
func NewServer(version string, coord *indexer.Coordinator, engine *searcher.Engine, emb embedder.Embedder, artifacts storage.Store) *Server {
	s := &Server{
		mcp:         server.NewMCPServer(ServerName, version),
		coordinator: coord,
		engine:      engine,
		embedder:    emb,
		artifacts:   artifacts,
	}
	s.registerTools()
	return s
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexTreeTool(), s.handleIndexTree)
	s.mcp.AddTool(searchKnowledgeTool(), s.handleSearchKnowledge)
	s.mcp.AddTool(findRelatedTool(), s.handleFindRelated)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
