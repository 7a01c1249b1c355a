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

	"proximity-sync/internal/faults"
	"proximity-sync/internal/middleware"
	"proximity-sync/internal/mocks"
	"proximity-sync/internal/models"
	"proximity-sync/internal/relationship"
)

func setupRelationshipRouter(handler *RelationshipHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UIDContextKey, "alice")
		c.Next()
	})
	r.POST("/relationship/requests", handler.SendRequest)
	r.POST("/relationship/requests/:request_id/accept", handler.AcceptRequest)
	r.POST("/relationship/requests/:request_id/reject", handler.RejectRequest)
	r.POST("/relationship/requests/:request_id/cancel", handler.CancelRequest)
	r.DELETE("/relationship/friends/:uid", handler.RemoveFriend)
	r.GET("/relationship/status/:uid", handler.Status)
	return r
}

func newRelationshipHandler(repo *mocks.RelationshipRepositoryMock, notifications *mocks.NotificationRepositoryMock) *RelationshipHandler {
	svc := relationship.NewService(repo, notifications, nil, 2*time.Second)
	return NewRelationshipHandler(svc)
}

func TestSendRequestSuccess(t *testing.T) {
	repo := new(mocks.RelationshipRepositoryMock)
	notifications := new(mocks.NotificationRepositoryMock)
	router := setupRelationshipRouter(newRelationshipHandler(repo, notifications))

	repo.On("GetIdentity", mock.Anything, "alice").Return(models.Identity{UID: "alice", Username: "Alice"}, nil).Once()
	repo.On("CreateRequest", mock.Anything, mock.MatchedBy(func(r models.FriendRequest) bool {
		return r.SenderID == "alice" && r.ReceiverID == "bob" && r.Status == models.RequestPending
	})).Return(nil).Once()
	notifications.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/relationship/requests", bytes.NewBufferString(`{"target_uid":"bob"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.FriendRequest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "bob", resp.ReceiverID)
	repo.AssertExpectations(t)
	notifications.AssertExpectations(t)
}

func TestSendRequestToSelfRejected(t *testing.T) {
	router := setupRelationshipRouter(newRelationshipHandler(new(mocks.RelationshipRepositoryMock), new(mocks.NotificationRepositoryMock)))

	req := httptest.NewRequest(http.MethodPost, "/relationship/requests", bytes.NewBufferString(`{"target_uid":"alice"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendRequestConflict(t *testing.T) {
	repo := new(mocks.RelationshipRepositoryMock)
	router := setupRelationshipRouter(newRelationshipHandler(repo, new(mocks.NotificationRepositoryMock)))

	repo.On("GetIdentity", mock.Anything, "alice").Return(models.Identity{UID: "alice"}, nil).Once()
	repo.On("CreateRequest", mock.Anything, mock.Anything).
		Return(faults.New(faults.Conflict, "request already pending")).Once()

	req := httptest.NewRequest(http.MethodPost, "/relationship/requests", bytes.NewBufferString(`{"target_uid":"bob"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "conflict", resp["kind"])
	assert.Equal(t, false, resp["retryable"])
	repo.AssertExpectations(t)
}

func TestAcceptRequestSuccess(t *testing.T) {
	repo := new(mocks.RelationshipRepositoryMock)
	notifications := new(mocks.NotificationRepositoryMock)
	router := setupRelationshipRouter(newRelationshipHandler(repo, notifications))

	accepted := models.FriendRequest{ID: "r1", SenderID: "bob", ReceiverID: "alice", Status: models.RequestAccepted}
	repo.On("AcceptRequest", mock.Anything, "r1").Return(accepted, nil).Once()
	repo.On("GetIdentity", mock.Anything, "alice").Return(models.Identity{UID: "alice", Username: "Alice"}, nil).Once()
	notifications.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/relationship/requests/r1/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
	notifications.AssertExpectations(t)
}

func TestAcceptNonPendingRequest(t *testing.T) {
	repo := new(mocks.RelationshipRepositoryMock)
	router := setupRelationshipRouter(newRelationshipHandler(repo, new(mocks.NotificationRepositoryMock)))

	repo.On("AcceptRequest", mock.Anything, "r1").
		Return(models.FriendRequest{}, faults.New(faults.InvalidState, "request r1 is accepted, not pending")).Once()

	req := httptest.NewRequest(http.MethodPost, "/relationship/requests/r1/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	repo.AssertExpectations(t)
}

func TestCancelRequestPassesCallerUID(t *testing.T) {
	repo := new(mocks.RelationshipRepositoryMock)
	router := setupRelationshipRouter(newRelationshipHandler(repo, new(mocks.NotificationRepositoryMock)))

	cancelled := models.FriendRequest{ID: "r1", SenderID: "alice", ReceiverID: "bob", Status: models.RequestRejected}
	repo.On("CancelRequest", mock.Anything, "r1", "alice").Return(cancelled, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/relationship/requests/r1/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestRemoveFriendSuccess(t *testing.T) {
	repo := new(mocks.RelationshipRepositoryMock)
	router := setupRelationshipRouter(newRelationshipHandler(repo, new(mocks.NotificationRepositoryMock)))

	repo.On("RemoveFriend", mock.Anything, "alice", "bob").Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/relationship/friends/bob", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	repo.AssertExpectations(t)
}

func TestStatusDerivedFromIdentity(t *testing.T) {
	repo := new(mocks.RelationshipRepositoryMock)
	router := setupRelationshipRouter(newRelationshipHandler(repo, new(mocks.NotificationRepositoryMock)))

	repo.On("GetIdentity", mock.Anything, "alice").
		Return(models.Identity{UID: "alice", Friends: []string{"bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/relationship/status/bob", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "friend", resp["status"])
	repo.AssertExpectations(t)
}
