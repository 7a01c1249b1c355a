package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"proximity-sync/internal/feed"
	"proximity-sync/internal/models"
)

// ListSnapshotter exposes the merge engine's current list for inspection.
type ListSnapshotter interface {
	Snapshot() []models.ListEntry
	SetFilter(filter models.ListFilter)
	SetSearch(query string)
}

// RegisterDebugRoutes wires debug-only endpoints for poking the session's
// merge engine and feed without a websocket client.
func RegisterDebugRoutes(router *gin.Engine, engine ListSnapshotter, agg *feed.Aggregator, uid string, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/list", func(c *gin.Context) {
		if engine == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "merge engine not configured"})
			return
		}
		if filter := c.Query("filter"); filter != "" {
			engine.SetFilter(models.ListFilter(filter))
		}
		if query, ok := c.GetQuery("q"); ok {
			engine.SetSearch(query)
		}
		c.JSON(http.StatusOK, gin.H{"entries": engine.Snapshot()})
	})

	router.GET("/debug/feed", func(c *gin.Context) {
		if agg == nil || uid == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feed not configured"})
			return
		}
		buckets, err := agg.Feed(c.Request.Context(), uid, time.Now())
		if err != nil {
			respondFault(c, err)
			return
		}
		c.JSON(http.StatusOK, buckets)
	})
}
