package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"proximity-sync/internal/relationship"
)

// RelationshipHandler manages the friend-request lifecycle endpoints.
type RelationshipHandler struct {
	svc *relationship.Service
}

// NewRelationshipHandler builds a RelationshipHandler.
func NewRelationshipHandler(svc *relationship.Service) *RelationshipHandler {
	return &RelationshipHandler{svc: svc}
}

// SendRequest creates a pending friend request to the target user.
func (h *RelationshipHandler) SendRequest(c *gin.Context) {
	var req struct {
		TargetUID string `json:"target_uid" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.svc.SendRequest(c.Request.Context(), uidFromContext(c), req.TargetUID)
	if err != nil {
		respondFault(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// AcceptRequest accepts a pending request addressed to the caller.
func (h *RelationshipHandler) AcceptRequest(c *gin.Context) {
	request, err := h.svc.AcceptRequest(c.Request.Context(), c.Param("request_id"))
	if err != nil {
		respondFault(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// RejectRequest declines a pending request.
func (h *RelationshipHandler) RejectRequest(c *gin.Context) {
	request, err := h.svc.RejectRequest(c.Request.Context(), c.Param("request_id"))
	if err != nil {
		respondFault(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// CancelRequest lets the sender withdraw their own pending request.
func (h *RelationshipHandler) CancelRequest(c *gin.Context) {
	request, err := h.svc.CancelRequest(c.Request.Context(), c.Param("request_id"), uidFromContext(c))
	if err != nil {
		respondFault(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// RemoveFriend severs a friendship from both sides.
func (h *RelationshipHandler) RemoveFriend(c *gin.Context) {
	if err := h.svc.RemoveFriend(c.Request.Context(), uidFromContext(c), c.Param("uid")); err != nil {
		respondFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Status derives the pairwise relationship status with the target user.
func (h *RelationshipHandler) Status(c *gin.Context) {
	status, err := h.svc.Status(c.Request.Context(), uidFromContext(c), c.Param("uid"))
	if err != nil {
		respondFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}
