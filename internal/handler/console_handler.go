package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/opennote/semindex/internal/indexengine"
	"github.com/opennote/semindex/internal/model"
	"github.com/opennote/semindex/internal/pkg/response"
	"github.com/opennote/semindex/internal/progress"
	"github.com/opennote/semindex/internal/vectorstore"
)

// ConsoleHandler serves the operator HTTP console (spec.md §6's control
// surface, supplemented per SPEC_FULL.md §5): status, reindex, cancel, and
// progress-tail endpoints, grounded on the teacher's internal/handler
// request/response shape. Cancellation routes through the engine's own
// token, so a cancel request here also stops a run started from the MCP
// surface, and vice versa.
type ConsoleHandler struct {
	engine      *indexengine.Engine
	store       *vectorstore.Store
	reporter    *progress.Reporter
	workspaceID string
	model       string
}

func NewConsoleHandler(engine *indexengine.Engine, store *vectorstore.Store, reporter *progress.Reporter, workspaceID, modelName string) *ConsoleHandler {
	return &ConsoleHandler{
		engine:      engine,
		store:       store,
		reporter:    reporter,
		workspaceID: workspaceID,
		model:       modelName,
	}
}

type reindexRequest struct {
	ReindexAll bool `json:"reindex_all"`
}

// Reindex handles POST /console/v1/reindex (spec.md §6's indexing
// request). Only the embedding work itself runs in the background: a
// second concurrent request still fails immediately with 409, since
// UpdateAsync surfaces the busy/config rejection before returning.
func (h *ConsoleHandler) Reindex(c *gin.Context) {
	var req reindexRequest
	_ = c.ShouldBindJSON(&req)

	h.engine.ResetCancel()
	if err := h.engine.UpdateAsync(context.Background(), indexengine.Options{ReindexAll: req.ReindexAll}, nil); err != nil {
		response.FromAppErr(c, err)
		return
	}

	response.Success(c, gin.H{"accepted": true})
}

// Cancel handles POST /console/v1/cancel (spec.md §6's cancellation request).
func (h *ConsoleHandler) Cancel(c *gin.Context) {
	h.engine.Cancel()
	response.Success(c, gin.H{"accepted": true})
}

// Status handles GET /console/v1/status (spec.md §6's status request).
func (h *ConsoleHandler) Status(c *gin.Context) {
	stats, err := h.store.ModelStats(c.Request.Context(), h.workspaceID)
	if err != nil {
		response.FromAppErr(c, err)
		return
	}
	dim, err := h.store.SchemaDimension(c.Request.Context())
	if err != nil {
		response.FromAppErr(c, err)
		return
	}
	lastUpdated, err := h.store.LastUpdated(c.Request.Context(), h.workspaceID)
	if err != nil {
		response.FromAppErr(c, err)
		return
	}
	totalFiles, err := h.engine.CountFiles()
	if err != nil {
		response.FromAppErr(c, err)
		return
	}
	indexedPaths, err := h.store.IndexedPaths(c.Request.Context(), h.engine.Scope())
	if err != nil {
		response.FromAppErr(c, err)
		return
	}

	response.Success(c, model.IndexStats{
		Initialized:    dim != nil,
		TotalFiles:     totalFiles,
		IndexedFiles:   len(indexedPaths),
		LastUpdated:    lastUpdated,
		EmbeddingModel: h.model,
		PerModelStats:  stats,
	})
}

// Progress handles GET /console/v1/progress (tail of the JSONL log).
func (h *ConsoleHandler) Progress(c *gin.Context) {
	n := 100
	if raw := c.Query("lines"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			n = parsed
		}
	}
	lines, err := progress.Tail(h.reporter.Path(), n)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 5, err.Error())
		return
	}
	response.Success(c, gin.H{"lines": lines})
}
