package handler

import (
	"github.com/gin-gonic/gin"
)

// RouterDeps wires the operator HTTP console's single handler group.
type RouterDeps struct {
	Console *ConsoleHandler
}

// RegisterRoutes registers the operator console under /console/v1, per
// SPEC_FULL.md §5.
func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	console := api.Group("/console/v1")
	console.GET("/status", deps.Console.Status)
	console.POST("/reindex", deps.Console.Reindex)
	console.POST("/cancel", deps.Console.Cancel)
	console.GET("/progress", deps.Console.Progress)
}
