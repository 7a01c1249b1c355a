package repositories

import (
	"context"
	"errors"
	"sort"

	"proximity-sync/internal/faults"
	"proximity-sync/internal/models"
	"proximity-sync/internal/store"
)

// ConversationRepository persists conversations and their messages.
// Conversation documents are keyed by the deterministic pair id, which is
// what makes creation idempotent under concurrent callers.
type ConversationRepository interface {
	Get(ctx context.Context, conversationID string) (models.Conversation, error)
	CreateIfAbsent(ctx context.Context, conversation models.Conversation) (models.Conversation, error)
	AppendMessage(ctx context.Context, message models.Message) (models.Conversation, error)
	MarkRead(ctx context.Context, conversationID, uid string) (models.Conversation, error)
	ListForUser(ctx context.Context, uid string) ([]models.Conversation, error)
	Messages(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
	WatchConversations(ctx context.Context) (store.Watch, error)
	WatchMessages(ctx context.Context, conversationID string) (store.Watch, error)
}

// StoreConversationRepo is the document-store implementation.
type StoreConversationRepo struct {
	store store.Store
}

// NewConversationRepo constructs a StoreConversationRepo.
func NewConversationRepo(s store.Store) *StoreConversationRepo {
	return &StoreConversationRepo{store: s}
}

// Get loads and normalizes a conversation document.
func (r *StoreConversationRepo) Get(ctx context.Context, conversationID string) (models.Conversation, error) {
	data, err := r.store.Get(ctx, ConversationPath(conversationID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Conversation{}, faults.New(faults.NotFound, "conversation %s not found", conversationID)
		}
		return models.Conversation{}, err
	}
	return decodeConversation(data)
}

// CreateIfAbsent creates the conversation unless a document already exists
// under its deterministic id. Concurrent callers converge on one record;
// the racing loser simply reads the winner's document.
func (r *StoreConversationRepo) CreateIfAbsent(ctx context.Context, conversation models.Conversation) (models.Conversation, error) {
	result := conversation
	err := r.store.RunTransaction(ctx, func(tx store.Tx) error {
		existing, err := getConversationTx(tx, conversation.ID)
		if err == nil {
			result = existing
			return nil
		}
		if !faults.Is(err, faults.NotFound) {
			return err
		}
		conversation.Normalize()
		result = conversation
		return putConversationTx(tx, conversation)
	})
	return result, err
}

// AppendMessage writes the message and folds it into the conversation
// document (last message fields, unread counts, seen-by reset) in one
// transaction. Every participant except the sender gains one unread.
func (r *StoreConversationRepo) AppendMessage(ctx context.Context, message models.Message) (models.Conversation, error) {
	var updated models.Conversation
	err := r.store.RunTransaction(ctx, func(tx store.Tx) error {
		conversation, err := getConversationTx(tx, message.ConversationID)
		if err != nil {
			return err
		}
		if !conversation.HasParticipant(message.SenderID) {
			return faults.New(faults.InvalidTarget, "%s is not a participant of %s", message.SenderID, message.ConversationID)
		}

		conversation.LastMessage = message.Content
		conversation.LastMessageSenderID = message.SenderID
		conversation.LastMessageAt = message.CreatedAt
		conversation.SeenBy = []string{message.SenderID}
		for _, uid := range conversation.Participants {
			if uid != message.SenderID {
				conversation.UnreadCounts[uid]++
			}
		}

		message.Normalize()
		data, err := json.Marshal(message)
		if err != nil {
			return err
		}
		tx.Set(MessagePath(message.ConversationID, message.ID), data)

		updated = conversation
		return putConversationTx(tx, conversation)
	})
	return updated, err
}

// MarkRead zeroes the reader's unread count and records them in seenBy.
// Other participants' counts are untouched.
func (r *StoreConversationRepo) MarkRead(ctx context.Context, conversationID, uid string) (models.Conversation, error) {
	var updated models.Conversation
	err := r.store.RunTransaction(ctx, func(tx store.Tx) error {
		conversation, err := getConversationTx(tx, conversationID)
		if err != nil {
			return err
		}
		if !conversation.HasParticipant(uid) {
			return faults.New(faults.InvalidTarget, "%s is not a participant of %s", uid, conversationID)
		}

		conversation.UnreadCounts[uid] = 0
		conversation.SeenBy = models.AddUID(conversation.SeenBy, uid)

		updated = conversation
		return putConversationTx(tx, conversation)
	})
	return updated, err
}

// ListForUser returns every conversation the user participates in.
func (r *StoreConversationRepo) ListForUser(ctx context.Context, uid string) ([]models.Conversation, error) {
	docs, err := r.store.List(ctx, ConversationPrefix)
	if err != nil {
		return nil, err
	}
	conversations := make([]models.Conversation, 0, len(docs))
	for _, data := range docs {
		conversation, err := decodeConversation(data)
		if err != nil {
			continue
		}
		if conversation.HasParticipant(uid) {
			conversations = append(conversations, conversation)
		}
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].ID < conversations[j].ID
	})
	return conversations, nil
}

// Messages returns the canonical ascending window of the conversation's
// most recent messages. limit <= 0 means no limit.
func (r *StoreConversationRepo) Messages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	docs, err := r.store.List(ctx, MessagePrefix(conversationID))
	if err != nil {
		return nil, err
	}
	messages := make([]models.Message, 0, len(docs))
	for _, data := range docs {
		var message models.Message
		if err := json.Unmarshal(data, &message); err != nil {
			continue
		}
		message.Normalize()
		messages = append(messages, message)
	}
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// WatchConversations subscribes to changes on every conversation document.
func (r *StoreConversationRepo) WatchConversations(ctx context.Context) (store.Watch, error) {
	return r.store.Subscribe(ctx, ConversationPrefix)
}

// WatchMessages subscribes to changes on one conversation's messages.
func (r *StoreConversationRepo) WatchMessages(ctx context.Context, conversationID string) (store.Watch, error) {
	return r.store.Subscribe(ctx, MessagePrefix(conversationID))
}

func getConversationTx(tx store.Tx, conversationID string) (models.Conversation, error) {
	data, err := tx.Get(ConversationPath(conversationID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Conversation{}, faults.New(faults.NotFound, "conversation %s not found", conversationID)
		}
		return models.Conversation{}, err
	}
	return decodeConversation(data)
}

func putConversationTx(tx store.Tx, conversation models.Conversation) error {
	data, err := json.Marshal(conversation)
	if err != nil {
		return err
	}
	tx.Set(ConversationPath(conversation.ID), data)
	return nil
}

func decodeConversation(data []byte) (models.Conversation, error) {
	var conversation models.Conversation
	if err := json.Unmarshal(data, &conversation); err != nil {
		return models.Conversation{}, err
	}
	conversation.Normalize()
	return conversation, nil
}
