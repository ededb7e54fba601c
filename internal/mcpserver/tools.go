package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/opennote/semindex/internal/indexengine"
	"github.com/opennote/semindex/internal/model"
	"github.com/opennote/semindex/internal/pkg/apperr"
	"github.com/opennote/semindex/internal/retrieval"
	"github.com/opennote/semindex/internal/vectorstore"
)

// Error codes, grounded on dshills-gocontext-mcp's internal/mcp error-code
// convention (reserved range for application-defined JSON-RPC errors).
const (
	errCodeInvalidParams = -32602
	errCodeBusy          = -32002
	errCodeInternal      = -32603
)

type mcpError struct {
	code    int
	message string
}

func (e *mcpError) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.code, e.message)
}

func newMCPError(code int, message string) error {
	return &mcpError{code: code, message: message}
}

func argsOf(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

func formatJSON(data interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(b)
}

func (s *Server) handleIndexUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	reindexAll, _ := args["reindex_all"].(bool)

	s.engine.ResetCancel()
	err := s.engine.Update(ctx, indexengine.Options{ReindexAll: reindexAll}, nil)
	if apperr.IsBusy(err) {
		return nil, newMCPError(errCodeBusy, "an indexing run is already in progress")
	}
	if err != nil {
		return nil, newMCPError(errCodeInternal, err.Error())
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"accepted": true, "reindex_all": reindexAll})), nil
}

func (s *Server) handleIndexCancel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.engine.Cancel()
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"cancelled": true})), nil
}

func (s *Server) handleIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID := s.workspaceIDOf()
	stats, err := s.store.ModelStats(ctx, workspaceID)
	if err != nil {
		return nil, newMCPError(errCodeInternal, err.Error())
	}
	dim, err := s.store.SchemaDimension(ctx)
	if err != nil {
		return nil, newMCPError(errCodeInternal, err.Error())
	}
	lastUpdated, err := s.store.LastUpdated(ctx, workspaceID)
	if err != nil {
		return nil, newMCPError(errCodeInternal, err.Error())
	}
	totalFiles, err := s.engine.CountFiles()
	if err != nil {
		return nil, newMCPError(errCodeInternal, err.Error())
	}
	indexedPaths, err := s.store.IndexedPaths(ctx, s.scopeOf())
	if err != nil {
		return nil, newMCPError(errCodeInternal, err.Error())
	}

	return mcp.NewToolResultText(formatJSON(model.IndexStats{
		Initialized:    dim != nil,
		TotalFiles:     totalFiles,
		IndexedFiles:   len(indexedPaths),
		LastUpdated:    lastUpdated,
		EmbeddingModel: s.scopeOf().Model,
		PerModelStats:  stats,
	})), nil
}

func (s *Server) handleIndexReinit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.store.ClearAll(ctx, s.scopeOf()); err != nil {
		return nil, newMCPError(errCodeInternal, err.Error())
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"reinitialized": true})), nil
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	query, _ := args["query"].(string)
	if query == "" {
		return nil, newMCPError(errCodeInvalidParams, "query parameter is required")
	}
	limit := getIntDefault(args, "limit", 20)
	minSimilarity := getFloatDefault(args, "min_similarity", 0)

	scope := retrieval.Scope{
		Files:   stringArray(args["files"]),
		Folders: stringArray(args["folders"]),
	}

	results, err := s.retriever.Search(ctx, query, minSimilarity, limit, scope)
	if err != nil {
		return nil, newMCPError(errCodeInternal, err.Error())
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"results": results})), nil
}

func (s *Server) workspaceIDOf() string {
	return s.scopeOf().WorkspaceID
}

func (s *Server) scopeOf() vectorstore.Scope {
	return s.engine.Scope()
}

func getIntDefault(args map[string]interface{}, key string, fallback int) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return fallback
}

func getFloatDefault(args map[string]interface{}, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}

func stringArray(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
