package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"proximity-sync/internal/cache"
	"proximity-sync/internal/directory"
	"proximity-sync/internal/models"
)

// ConversationHandler manages conversation and message endpoints. Remote
// reads go through the directory service; replica reads go through the
// local message cache.
type ConversationHandler struct {
	svc   *directory.Service
	cache cache.MessageCache
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(svc *directory.Service, messageCache cache.MessageCache) *ConversationHandler {
	return &ConversationHandler{svc: svc, cache: messageCache}
}

// StartConversation creates or returns the conversation with the target.
func (h *ConversationHandler) StartConversation(c *gin.Context) {
	var req struct {
		TargetUID string `json:"target_uid" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conversation, err := h.svc.StartConversation(c.Request.Context(), uidFromContext(c), req.TargetUID)
	if err != nil {
		respondFault(c, err)
		return
	}
	c.JSON(http.StatusOK, conversation)
}

// ListConversations returns the caller's conversation snapshot.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	conversations, err := h.svc.Conversations(c.Request.Context(), uidFromContext(c))
	if err != nil {
		respondFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// PostMessage appends a message to the conversation.
func (h *ConversationHandler) PostMessage(c *gin.Context) {
	var req struct {
		Content string             `json:"content" binding:"required"`
		Type    models.MessageType `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.svc.SendMessage(c.Request.Context(), c.Param("conversation_id"), uidFromContext(c), req.Content, req.Type)
	if err != nil {
		respondFault(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// MarkRead zeroes the caller's unread count for the conversation.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	if err := h.svc.MarkRead(c.Request.Context(), c.Param("conversation_id"), uidFromContext(c)); err != nil {
		respondFault(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMessages returns the canonical remote message window.
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	messages, err := h.svc.Messages(c.Request.Context(), c.Param("conversation_id"), limit)
	if err != nil {
		respondFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// GetCachedMessages returns the local replica for the conversation. Serves
// instantly even when the remote store is unreachable.
func (h *ConversationHandler) GetCachedMessages(c *gin.Context) {
	messages, err := h.cache.Messages(c.Request.Context(), c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read local cache"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
