package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func indexUpdateTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_update",
		Description: "Index the workspace incrementally, or fully with reindex_all",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"reindex_all": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, clear and rebuild the entire index instead of an incremental diff",
					"default":     false,
				},
			},
		},
	}
}

func indexCancelTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_cancel",
		Description: "Cancel an in-progress indexing run for this workspace",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
		},
	}
}

func indexStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_status",
		Description: "Report indexing status and per-model row statistics",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
		},
	}
}

func indexReinitTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_reinit",
		Description: "Delete all indexed rows for the current workspace and embedding model",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
		},
	}
}

func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Semantically search the indexed workspace",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language search query",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results",
					"default":     20,
				},
				"min_similarity": map[string]interface{}{
					"type":        "number",
					"description": "Minimum cosine similarity threshold",
				},
				"files": map[string]interface{}{
					"type":        "array",
					"description": "Restrict results to these exact file paths",
					"items":       map[string]interface{}{"type": "string"},
				},
				"folders": map[string]interface{}{
					"type":        "array",
					"description": "Restrict results to these folders",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			Required: []string{"query"},
		},
	}
}
