package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"proximity-sync/internal/faults"
	"proximity-sync/internal/middleware"
)

// respondFault renders a classified engine failure. Retryable transient
// store faults surface as 503 so clients back off instead of treating
// them as terminal.
func respondFault(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch faults.KindOf(err) {
	case faults.NotFound:
		status = http.StatusNotFound
	case faults.Conflict:
		status = http.StatusConflict
	case faults.InvalidState:
		status = http.StatusUnprocessableEntity
	case faults.InvalidTarget:
		status = http.StatusBadRequest
	case faults.TransientStore:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"error":     faults.Reason(err),
		"kind":      faults.KindOf(err).String(),
		"retryable": faults.Retryable(err),
	})
}

func uidFromContext(c *gin.Context) string {
	return c.GetString(middleware.UIDContextKey)
}
