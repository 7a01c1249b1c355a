package directory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"proximity-sync/internal/events"
	"proximity-sync/internal/faults"
	"proximity-sync/internal/logging"
	"proximity-sync/internal/models"
	"proximity-sync/internal/observability"
	"proximity-sync/internal/repositories"
	"proximity-sync/internal/store"
	"proximity-sync/internal/streams"
)

// Service owns conversation identity, participant metadata and unread
// bookkeeping. It talks only to the remote store; the local mirror reads
// its message stream independently.
type Service struct {
	conversations repositories.ConversationRepository
	identities    repositories.RelationshipRepository
	emitter       *events.Emitter
	timeout       time.Duration
}

// NewService constructs a Service.
func NewService(conversations repositories.ConversationRepository, identities repositories.RelationshipRepository, emitter *events.Emitter, timeout time.Duration) *Service {
	return &Service{conversations: conversations, identities: identities, emitter: emitter, timeout: timeout}
}

// ConversationID exposes the deterministic pair id.
func (s *Service) ConversationID(uidA, uidB string) string {
	return models.ConversationID(uidA, uidB)
}

// StartConversation returns the conversation for the pair, creating it
// with empty history and zeroed unread counts when absent. Idempotent:
// the deterministic id is the document key, so concurrent starters
// converge on one record.
func (s *Service) StartConversation(ctx context.Context, selfUID, targetUID string) (models.Conversation, error) {
	if selfUID == targetUID {
		return models.Conversation{}, faults.New(faults.InvalidTarget, "cannot start a conversation with yourself")
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "directory.start_conversation")
	defer span.End()

	self, err := s.identities.GetIdentity(ctx, selfUID)
	if err != nil {
		return models.Conversation{}, repositories.Classify(err, "start conversation")
	}
	target, err := s.identities.GetIdentity(ctx, targetUID)
	if err != nil {
		return models.Conversation{}, repositories.Classify(err, "start conversation")
	}

	conversation := models.Conversation{
		ID:           models.ConversationID(selfUID, targetUID),
		Participants: []string{selfUID, targetUID},
		ParticipantMeta: map[string]models.ParticipantMeta{
			selfUID:   self.Meta(),
			targetUID: target.Meta(),
		},
		UnreadCounts: map[string]int{selfUID: 0, targetUID: 0},
		SeenBy:       []string{},
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.conversations.CreateIfAbsent(ctx, conversation)
	observability.IncStoreOp("start_conversation", err)
	if err != nil {
		return models.Conversation{}, repositories.Classify(err, "start conversation")
	}
	return created, nil
}

// SendMessage appends an immutable message and updates the conversation's
// last-message fields and unread counts in one transaction. There is no
// local echo: the sender sees the message when the mirror delivers it.
func (s *Service) SendMessage(ctx context.Context, conversationID, senderUID, content string, messageType models.MessageType) (models.Message, error) {
	if content == "" {
		return models.Message{}, faults.New(faults.InvalidTarget, "message content is empty")
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "directory.send_message")
	defer span.End()

	sender, err := s.identities.GetIdentity(ctx, senderUID)
	if err != nil {
		return models.Message{}, repositories.Classify(err, "send message")
	}

	message := models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderUID,
		SenderName:     sender.Username,
		Content:        content,
		Type:           messageType,
		CreatedAt:      time.Now().UTC(),
	}
	message.Normalize()

	if _, err := s.conversations.AppendMessage(ctx, message); err != nil {
		observability.IncStoreOp("send_message", err)
		return models.Message{}, repositories.Classify(err, "send message")
	}
	observability.IncStoreOp("send_message", nil)

	s.emitter.MessageSent(ctx, message)
	return message, nil
}

// MarkRead zeroes the reader's unread count and records the read.
func (s *Service) MarkRead(ctx context.Context, conversationID, uid string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.conversations.MarkRead(ctx, conversationID, uid)
	observability.IncStoreOp("mark_read", err)
	return repositories.Classify(err, "mark read")
}

// Conversations returns the current snapshot for a user.
func (s *Service) Conversations(ctx context.Context, uid string) ([]models.Conversation, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	conversations, err := s.conversations.ListForUser(ctx, uid)
	if err != nil {
		return nil, repositories.Classify(err, "list conversations")
	}
	return conversations, nil
}

// Messages returns the canonical ascending message window.
func (s *Service) Messages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	messages, err := s.conversations.Messages(ctx, conversationID, limit)
	if err != nil {
		return nil, repositories.Classify(err, "list messages")
	}
	return messages, nil
}

// ConversationStream is a cancellable snapshot stream of every
// conversation a user participates in.
type ConversationStream struct {
	sub   *streams.Subscription[[]models.Conversation]
	watch store.Watch
	once  sync.Once
}

func (st *ConversationStream) C() <-chan []models.Conversation { return st.sub.C() }

func (st *ConversationStream) Cancel() {
	st.once.Do(func() { st.watch.Cancel() })
}

// StreamConversations emits the full conversation snapshot for the user on
// every change to any conversation they participate in.
func (s *Service) StreamConversations(ctx context.Context, uid string) (*ConversationStream, error) {
	initial, err := s.conversations.ListForUser(ctx, uid)
	if err != nil {
		return nil, repositories.Classify(err, "stream conversations")
	}

	watch, err := s.conversations.WatchConversations(ctx)
	if err != nil {
		return nil, repositories.Classify(err, "stream conversations")
	}

	broker := streams.NewBroker[[]models.Conversation]()
	sub := broker.Subscribe()
	broker.Publish(initial)
	observability.IncStreamEmission("conversations")

	go func() {
		defer broker.Close()
		for event := range watch.C() {
			// Conversation ids embed both participant uids, so changes
			// that cannot involve this user are skipped without a read.
			if !strings.Contains(event.Path, uid) {
				continue
			}
			snapshot, err := s.conversations.ListForUser(ctx, uid)
			if err != nil {
				logging.L().Warnw("conversation refresh failed", "uid", uid, "error", err)
				continue
			}
			broker.Publish(snapshot)
			observability.IncStreamEmission("conversations")
		}
	}()

	return &ConversationStream{sub: sub, watch: watch}, nil
}

// MessageStream is a cancellable snapshot stream of one conversation's
// most recent messages, ascending by timestamp.
type MessageStream struct {
	sub   *streams.Subscription[[]models.Message]
	watch store.Watch
	once  sync.Once
}

func (st *MessageStream) C() <-chan []models.Message { return st.sub.C() }

func (st *MessageStream) Cancel() {
	st.once.Do(func() { st.watch.Cancel() })
}

// StreamMessages emits the full ascending window of the conversation's
// last `limit` messages on every append.
func (s *Service) StreamMessages(ctx context.Context, conversationID string, limit int) (*MessageStream, error) {
	initial, err := s.conversations.Messages(ctx, conversationID, limit)
	if err != nil {
		return nil, repositories.Classify(err, "stream messages")
	}

	watch, err := s.conversations.WatchMessages(ctx, conversationID)
	if err != nil {
		return nil, repositories.Classify(err, "stream messages")
	}

	broker := streams.NewBroker[[]models.Message]()
	sub := broker.Subscribe()
	broker.Publish(initial)
	observability.IncStreamEmission("messages")

	go func() {
		defer broker.Close()
		for range watch.C() {
			snapshot, err := s.conversations.Messages(ctx, conversationID, limit)
			if err != nil {
				logging.L().Warnw("message refresh failed", "conversation_id", conversationID, "error", err)
				continue
			}
			broker.Publish(snapshot)
			observability.IncStreamEmission("messages")
		}
	}()

	return &MessageStream{sub: sub, watch: watch}, nil
}

func (s *Service) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

const tracerName = "proximity-sync/directory"
