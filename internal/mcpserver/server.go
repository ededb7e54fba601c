package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/opennote/semindex/internal/indexengine"
	"github.com/opennote/semindex/internal/retrieval"
	"github.com/opennote/semindex/internal/vectorstore"
)

const (
	ServerName    = "semindex"
	ServerVersion = "1.0.0"
)

// Server is the stdio control surface consumed by an external AI assistant
// (SPEC_FULL.md §5), grounded on dshills-gocontext-mcp's internal/mcp
// package: the library is used purely as a transport, registering thin
// tool handlers that call straight into the engine/retriever. Cancellation
// routes through the engine's own token, shared with the HTTP console, so
// either surface can cancel a run started by the other.
type Server struct {
	mcp       *server.MCPServer
	engine    *indexengine.Engine
	store     *vectorstore.Store
	retriever *retrieval.Engine
}

func New(engine *indexengine.Engine, store *vectorstore.Store, retriever *retrieval.Engine) *Server {
	s := &Server{
		mcp:       server.NewMCPServer(ServerName, ServerVersion),
		engine:    engine,
		store:     store,
		retriever: retriever,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(indexUpdateTool(), s.handleIndexUpdate)
	s.mcp.AddTool(indexCancelTool(), s.handleIndexCancel)
	s.mcp.AddTool(indexStatusTool(), s.handleIndexStatus)
	s.mcp.AddTool(indexReinitTool(), s.handleIndexReinit)
	s.mcp.AddTool(searchTool(), s.handleSearch)
}

// Serve blocks on stdio until the transport closes.
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}
