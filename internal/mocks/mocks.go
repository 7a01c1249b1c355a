package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"proximity-sync/internal/cache"
	"proximity-sync/internal/models"
	"proximity-sync/internal/repositories"
	"proximity-sync/internal/store"
)

type RelationshipRepositoryMock struct {
	mock.Mock
}

func (m *RelationshipRepositoryMock) GetIdentity(ctx context.Context, uid string) (models.Identity, error) {
	args := m.Called(ctx, uid)
	var identity models.Identity
	if val := args.Get(0); val != nil {
		identity = val.(models.Identity)
	}
	return identity, args.Error(1)
}

func (m *RelationshipRepositoryMock) PutIdentity(ctx context.Context, identity models.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *RelationshipRepositoryMock) GetRequest(ctx context.Context, requestID string) (models.FriendRequest, error) {
	args := m.Called(ctx, requestID)
	var request models.FriendRequest
	if val := args.Get(0); val != nil {
		request = val.(models.FriendRequest)
	}
	return request, args.Error(1)
}

func (m *RelationshipRepositoryMock) CreateRequest(ctx context.Context, request models.FriendRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *RelationshipRepositoryMock) AcceptRequest(ctx context.Context, requestID string) (models.FriendRequest, error) {
	args := m.Called(ctx, requestID)
	var request models.FriendRequest
	if val := args.Get(0); val != nil {
		request = val.(models.FriendRequest)
	}
	return request, args.Error(1)
}

func (m *RelationshipRepositoryMock) RejectRequest(ctx context.Context, requestID string) (models.FriendRequest, error) {
	args := m.Called(ctx, requestID)
	var request models.FriendRequest
	if val := args.Get(0); val != nil {
		request = val.(models.FriendRequest)
	}
	return request, args.Error(1)
}

func (m *RelationshipRepositoryMock) CancelRequest(ctx context.Context, requestID, callerUID string) (models.FriendRequest, error) {
	args := m.Called(ctx, requestID, callerUID)
	var request models.FriendRequest
	if val := args.Get(0); val != nil {
		request = val.(models.FriendRequest)
	}
	return request, args.Error(1)
}

func (m *RelationshipRepositoryMock) RemoveFriend(ctx context.Context, uid, friendUID string) error {
	args := m.Called(ctx, uid, friendUID)
	return args.Error(0)
}

func (m *RelationshipRepositoryMock) WatchIdentity(ctx context.Context, uid string) (store.Watch, error) {
	args := m.Called(ctx, uid)
	var watch store.Watch
	if val := args.Get(0); val != nil {
		watch = val.(store.Watch)
	}
	return watch, args.Error(1)
}

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) Get(ctx context.Context, conversationID string) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conversation models.Conversation
	if val := args.Get(0); val != nil {
		conversation = val.(models.Conversation)
	}
	return conversation, args.Error(1)
}

func (m *ConversationRepositoryMock) CreateIfAbsent(ctx context.Context, conversation models.Conversation) (models.Conversation, error) {
	args := m.Called(ctx, conversation)
	var created models.Conversation
	if val := args.Get(0); val != nil {
		created = val.(models.Conversation)
	}
	return created, args.Error(1)
}

func (m *ConversationRepositoryMock) AppendMessage(ctx context.Context, message models.Message) (models.Conversation, error) {
	args := m.Called(ctx, message)
	var conversation models.Conversation
	if val := args.Get(0); val != nil {
		conversation = val.(models.Conversation)
	}
	return conversation, args.Error(1)
}

func (m *ConversationRepositoryMock) MarkRead(ctx context.Context, conversationID, uid string) (models.Conversation, error) {
	args := m.Called(ctx, conversationID, uid)
	var conversation models.Conversation
	if val := args.Get(0); val != nil {
		conversation = val.(models.Conversation)
	}
	return conversation, args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, uid string) ([]models.Conversation, error) {
	args := m.Called(ctx, uid)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) Messages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *ConversationRepositoryMock) WatchConversations(ctx context.Context) (store.Watch, error) {
	args := m.Called(ctx)
	var watch store.Watch
	if val := args.Get(0); val != nil {
		watch = val.(store.Watch)
	}
	return watch, args.Error(1)
}

func (m *ConversationRepositoryMock) WatchMessages(ctx context.Context, conversationID string) (store.Watch, error) {
	args := m.Called(ctx, conversationID)
	var watch store.Watch
	if val := args.Get(0); val != nil {
		watch = val.(store.Watch)
	}
	return watch, args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) Append(ctx context.Context, event models.NotificationEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) ListForUser(ctx context.Context, uid string) ([]models.NotificationEvent, error) {
	args := m.Called(ctx, uid)
	var events []models.NotificationEvent
	if val := args.Get(0); val != nil {
		events = val.([]models.NotificationEvent)
	}
	return events, args.Error(1)
}

func (m *NotificationRepositoryMock) MarkAllRead(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) WatchForUser(ctx context.Context, uid string) (store.Watch, error) {
	args := m.Called(ctx, uid)
	var watch store.Watch
	if val := args.Get(0); val != nil {
		watch = val.(store.Watch)
	}
	return watch, args.Error(1)
}

type MessageCacheMock struct {
	mock.Mock
}

func (m *MessageCacheMock) ReplaceConversation(ctx context.Context, conversationID string, messages []models.Message) error {
	args := m.Called(ctx, conversationID, messages)
	return args.Error(0)
}

func (m *MessageCacheMock) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageCacheMock) Clear(ctx context.Context, conversationID string) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

var _ repositories.RelationshipRepository = (*RelationshipRepositoryMock)(nil)
var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.NotificationRepository = (*NotificationRepositoryMock)(nil)
var _ cache.MessageCache = (*MessageCacheMock)(nil)
