package relationship

import (
	"context"
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

// Service governs the friend-request lifecycle and the derived pairwise
// relationship status. Every mutating operation commits as one store
// transaction and returns exactly one success/failure result.
type Service struct {
	repo          repositories.RelationshipRepository
	notifications repositories.NotificationRepository
	emitter       *events.Emitter
	timeout       time.Duration
}

// NewService constructs a Service.
func NewService(repo repositories.RelationshipRepository, notifications repositories.NotificationRepository, emitter *events.Emitter, timeout time.Duration) *Service {
	return &Service{repo: repo, notifications: notifications, emitter: emitter, timeout: timeout}
}

// SendRequest creates a pending request from one uid to another. Fails
// with Conflict while an earlier request for the same direction is still
// pending and with InvalidTarget for a self-request. A pending request in
// the reverse direction is independent and left for the caller to resolve.
func (s *Service) SendRequest(ctx context.Context, fromUID, toUID string) (models.FriendRequest, error) {
	if fromUID == toUID {
		return models.FriendRequest{}, faults.New(faults.InvalidTarget, "cannot send a friend request to yourself")
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "relationship.send_request")
	defer span.End()

	sender, err := s.repo.GetIdentity(ctx, fromUID)
	if err != nil {
		return models.FriendRequest{}, repositories.Classify(err, "send request")
	}

	request := models.FriendRequest{
		ID:         uuid.NewString(),
		SenderID:   fromUID,
		ReceiverID: toUID,
		Status:     models.RequestPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateRequest(ctx, request); err != nil {
		observability.IncStoreOp("send_request", err)
		return models.FriendRequest{}, repositories.Classify(err, "send request")
	}
	observability.IncStoreOp("send_request", nil)

	s.notify(ctx, models.NotificationEvent{
		ID:         uuid.NewString(),
		UserID:     toUID,
		Type:       models.NotificationFriendRequest,
		SenderID:   fromUID,
		SenderMeta: sender.Meta(),
		Message:    sender.Username + " sent you a friend request",
		ActionRef:  request.ID,
		CreatedAt:  request.CreatedAt,
	})
	s.emitter.FriendRequested(ctx, request)
	return request, nil
}

// AcceptRequest atomically accepts a pending request: the request flips to
// accepted and both identities gain the friend edge, or nothing changes.
func (s *Service) AcceptRequest(ctx context.Context, requestID string) (models.FriendRequest, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "relationship.accept_request")
	defer span.End()

	request, err := s.repo.AcceptRequest(ctx, requestID)
	observability.IncStoreOp("accept_request", err)
	if err != nil {
		return models.FriendRequest{}, repositories.Classify(err, "accept request")
	}

	accepter, err := s.repo.GetIdentity(ctx, request.ReceiverID)
	if err != nil {
		// The accept already committed; the feed entry is best-effort.
		logging.L().Warnw("accepter lookup failed after accept", "request_id", requestID, "error", err)
		accepter = models.Identity{UID: request.ReceiverID}
	}

	s.notify(ctx, models.NotificationEvent{
		ID:         uuid.NewString(),
		UserID:     request.SenderID,
		Type:       models.NotificationFriendAccepted,
		SenderID:   request.ReceiverID,
		SenderMeta: accepter.Meta(),
		Message:    accepter.Username + " accepted your friend request",
		ActionRef:  request.ID,
		CreatedAt:  time.Now().UTC(),
	})
	s.emitter.FriendAccepted(ctx, request)
	return request, nil
}

// RejectRequest declines a pending request. No friend edge is created; a
// non-pending request fails with InvalidState.
func (s *Service) RejectRequest(ctx context.Context, requestID string) (models.FriendRequest, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	request, err := s.repo.RejectRequest(ctx, requestID)
	observability.IncStoreOp("reject_request", err)
	if err != nil {
		return models.FriendRequest{}, repositories.Classify(err, "reject request")
	}
	return request, nil
}

// CancelRequest lets the original sender withdraw a pending request.
func (s *Service) CancelRequest(ctx context.Context, requestID, callerUID string) (models.FriendRequest, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	request, err := s.repo.CancelRequest(ctx, requestID, callerUID)
	observability.IncStoreOp("cancel_request", err)
	if err != nil {
		return models.FriendRequest{}, repositories.Classify(err, "cancel request")
	}
	return request, nil
}

// RemoveFriend severs a friendship from both sides atomically.
func (s *Service) RemoveFriend(ctx context.Context, uid, friendUID string) error {
	if uid == friendUID {
		return faults.New(faults.InvalidTarget, "cannot unfriend yourself")
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	err := s.repo.RemoveFriend(ctx, uid, friendUID)
	observability.IncStoreOp("remove_friend", err)
	return repositories.Classify(err, "remove friend")
}

// Status derives the pairwise relationship status from the current
// identity document. Never persisted; always recomputed.
func (s *Service) Status(ctx context.Context, selfUID, otherUID string) (models.RelationshipStatus, error) {
	if selfUID == otherUID {
		return models.StatusSelf, nil
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	self, err := s.repo.GetIdentity(ctx, selfUID)
	if err != nil {
		return models.StatusNone, repositories.Classify(err, "relationship status")
	}
	return DeriveStatus(self, otherUID), nil
}

// DeriveStatus computes the relationship status from one side's mirror
// sets. Priority: self > friend > sent > received > none, so a stale
// request entry never shadows an established friendship.
func DeriveStatus(self models.Identity, otherUID string) models.RelationshipStatus {
	switch {
	case self.UID == otherUID:
		return models.StatusSelf
	case self.HasFriend(otherUID):
		return models.StatusFriend
	case self.HasSentRequestTo(otherUID):
		return models.StatusSentRequest
	case self.HasReceivedRequestFrom(otherUID):
		return models.StatusReceivedRequest
	default:
		return models.StatusNone
	}
}

// IdentityStream is a cancellable snapshot stream of one user's identity.
type IdentityStream struct {
	sub   *streams.Subscription[models.Identity]
	watch store.Watch
	once  sync.Once
}

func (st *IdentityStream) C() <-chan models.Identity { return st.sub.C() }

// Cancel stops the remote listener; no further snapshots are delivered.
func (st *IdentityStream) Cancel() {
	st.once.Do(func() { st.watch.Cancel() })
}

// StreamIdentity opens a push subscription on the user document and emits
// a full identity snapshot on every change, starting with the current one.
func (s *Service) StreamIdentity(ctx context.Context, uid string) (*IdentityStream, error) {
	initial, err := s.repo.GetIdentity(ctx, uid)
	if err != nil {
		return nil, repositories.Classify(err, "stream identity")
	}

	watch, err := s.repo.WatchIdentity(ctx, uid)
	if err != nil {
		return nil, repositories.Classify(err, "stream identity")
	}

	broker := streams.NewBroker[models.Identity]()
	sub := broker.Subscribe()
	broker.Publish(initial)
	observability.IncStreamEmission("identity")

	go func() {
		defer broker.Close()
		for event := range watch.C() {
			if event.Deleted {
				continue
			}
			snapshot, err := s.repo.GetIdentity(ctx, uid)
			if err != nil {
				logging.L().Warnw("identity refresh failed", "uid", uid, "error", err)
				continue
			}
			broker.Publish(snapshot)
			observability.IncStreamEmission("identity")
		}
	}()

	return &IdentityStream{sub: sub, watch: watch}, nil
}

func (s *Service) notify(ctx context.Context, event models.NotificationEvent) {
	if s.notifications == nil {
		return
	}
	if err := s.notifications.Append(ctx, event); err != nil {
		logging.L().Warnw("feed append failed", "user_id", event.UserID, "type", event.Type, "error", err)
	}
}

func (s *Service) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

const tracerName = "proximity-sync/relationship"
