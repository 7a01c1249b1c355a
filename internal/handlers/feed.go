package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"proximity-sync/internal/feed"
)

// FeedHandler serves the bucketed activity feed.
type FeedHandler struct {
	agg *feed.Aggregator
}

// NewFeedHandler builds a FeedHandler.
func NewFeedHandler(agg *feed.Aggregator) *FeedHandler {
	return &FeedHandler{agg: agg}
}

// GetFeed returns the caller's feed bucketed against their local midnight.
// The client's timezone offset arrives as ?tz_offset_minutes=.
func (h *FeedHandler) GetFeed(c *gin.Context) {
	now := time.Now().UTC()
	if raw := c.Query("tz_offset_minutes"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tz_offset_minutes"})
			return
		}
		now = now.In(time.FixedZone("client", offset*60))
	}

	buckets, err := h.agg.Feed(c.Request.Context(), uidFromContext(c), now)
	if err != nil {
		respondFault(c, err)
		return
	}
	c.JSON(http.StatusOK, buckets)
}

// GetUnreadCount returns the number of unread feed events.
func (h *FeedHandler) GetUnreadCount(c *gin.Context) {
	count, err := h.agg.UnreadCount(c.Request.Context(), uidFromContext(c))
	if err != nil {
		respondFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkAllRead flips every unread feed event for the caller.
func (h *FeedHandler) MarkAllRead(c *gin.Context) {
	if err := h.agg.MarkAllRead(c.Request.Context(), uidFromContext(c)); err != nil {
		respondFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
