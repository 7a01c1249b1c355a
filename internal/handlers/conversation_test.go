package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"proximity-sync/internal/directory"
	"proximity-sync/internal/middleware"
	"proximity-sync/internal/mocks"
	"proximity-sync/internal/models"
)

func setupConversationRouter(handler *ConversationHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UIDContextKey, "alice")
		c.Next()
	})
	r.POST("/conversations", handler.StartConversation)
	r.GET("/conversations", handler.ListConversations)
	r.POST("/conversations/:conversation_id/messages", handler.PostMessage)
	r.POST("/conversations/:conversation_id/read", handler.MarkRead)
	r.GET("/conversations/:conversation_id/messages", handler.GetMessages)
	r.GET("/conversations/:conversation_id/cache", handler.GetCachedMessages)
	return r
}

func newConversationHandler(conversations *mocks.ConversationRepositoryMock, identities *mocks.RelationshipRepositoryMock, messageCache *mocks.MessageCacheMock) *ConversationHandler {
	svc := directory.NewService(conversations, identities, nil, 2*time.Second)
	return NewConversationHandler(svc, messageCache)
}

func TestStartConversationSuccess(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	identities := new(mocks.RelationshipRepositoryMock)
	router := setupConversationRouter(newConversationHandler(conversations, identities, new(mocks.MessageCacheMock)))

	identities.On("GetIdentity", mock.Anything, "alice").Return(models.Identity{UID: "alice", Username: "Alice"}, nil).Once()
	identities.On("GetIdentity", mock.Anything, "bob").Return(models.Identity{UID: "bob", Username: "Bob"}, nil).Once()
	conversations.On("CreateIfAbsent", mock.Anything, mock.MatchedBy(func(conv models.Conversation) bool {
		return conv.ID == models.ConversationID("alice", "bob")
	})).Return(models.Conversation{ID: models.ConversationID("alice", "bob")}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations", bytes.NewBufferString(`{"target_uid":"bob"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	conversations.AssertExpectations(t)
	identities.AssertExpectations(t)
}

func TestStartConversationWithSelf(t *testing.T) {
	router := setupConversationRouter(newConversationHandler(new(mocks.ConversationRepositoryMock), new(mocks.RelationshipRepositoryMock), new(mocks.MessageCacheMock)))

	req := httptest.NewRequest(http.MethodPost, "/conversations", bytes.NewBufferString(`{"target_uid":"alice"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessageSuccess(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	identities := new(mocks.RelationshipRepositoryMock)
	router := setupConversationRouter(newConversationHandler(conversations, identities, new(mocks.MessageCacheMock)))

	identities.On("GetIdentity", mock.Anything, "alice").Return(models.Identity{UID: "alice", Username: "Alice"}, nil).Once()
	conversations.On("AppendMessage", mock.Anything, mock.MatchedBy(func(msg models.Message) bool {
		return msg.ConversationID == "alice_bob" && msg.SenderID == "alice" && msg.Content == "hi"
	})).Return(models.Conversation{ID: "alice_bob"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/alice_bob/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Alice", resp.SenderName)
	assert.Equal(t, models.MessageText, resp.Type)
	conversations.AssertExpectations(t)
	identities.AssertExpectations(t)
}

func TestPostMessageEmptyContent(t *testing.T) {
	router := setupConversationRouter(newConversationHandler(new(mocks.ConversationRepositoryMock), new(mocks.RelationshipRepositoryMock), new(mocks.MessageCacheMock)))

	req := httptest.NewRequest(http.MethodPost, "/conversations/alice_bob/messages", bytes.NewBufferString(`{"content":""}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkReadSuccess(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	router := setupConversationRouter(newConversationHandler(conversations, new(mocks.RelationshipRepositoryMock), new(mocks.MessageCacheMock)))

	conversations.On("MarkRead", mock.Anything, "alice_bob", "alice").Return(models.Conversation{ID: "alice_bob"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/alice_bob/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	conversations.AssertExpectations(t)
}

func TestGetMessagesInvalidLimit(t *testing.T) {
	router := setupConversationRouter(newConversationHandler(new(mocks.ConversationRepositoryMock), new(mocks.RelationshipRepositoryMock), new(mocks.MessageCacheMock)))

	req := httptest.NewRequest(http.MethodGet, "/conversations/alice_bob/messages?limit=zero", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMessagesPassesLimit(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	router := setupConversationRouter(newConversationHandler(conversations, new(mocks.RelationshipRepositoryMock), new(mocks.MessageCacheMock)))

	conversations.On("Messages", mock.Anything, "alice_bob", 10).Return([]models.Message{{ID: "m1"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/alice_bob/messages?limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	conversations.AssertExpectations(t)
}

func TestGetCachedMessagesReadsReplica(t *testing.T) {
	messageCache := new(mocks.MessageCacheMock)
	router := setupConversationRouter(newConversationHandler(new(mocks.ConversationRepositoryMock), new(mocks.RelationshipRepositoryMock), messageCache))

	messageCache.On("Messages", mock.Anything, "alice_bob").Return([]models.Message{{ID: "m1", Content: "hi"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/alice_bob/cache", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	messageCache.AssertExpectations(t)
}
