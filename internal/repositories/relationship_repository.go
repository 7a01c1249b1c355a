package repositories

import (
	"context"
	"errors"

	"proximity-sync/internal/faults"
	"proximity-sync/internal/models"
	"proximity-sync/internal/store"
)

// RelationshipRepository persists identities and friend requests. The
// multi-document operations are storage-level invariants: both sides of a
// mirror set move in one transaction or not at all.
type RelationshipRepository interface {
	GetIdentity(ctx context.Context, uid string) (models.Identity, error)
	PutIdentity(ctx context.Context, identity models.Identity) error
	GetRequest(ctx context.Context, requestID string) (models.FriendRequest, error)
	CreateRequest(ctx context.Context, request models.FriendRequest) error
	AcceptRequest(ctx context.Context, requestID string) (models.FriendRequest, error)
	RejectRequest(ctx context.Context, requestID string) (models.FriendRequest, error)
	CancelRequest(ctx context.Context, requestID, callerUID string) (models.FriendRequest, error)
	RemoveFriend(ctx context.Context, uid, friendUID string) error
	WatchIdentity(ctx context.Context, uid string) (store.Watch, error)
}

// StoreRelationshipRepo is the document-store implementation.
type StoreRelationshipRepo struct {
	store store.Store
}

// NewRelationshipRepo constructs a StoreRelationshipRepo.
func NewRelationshipRepo(s store.Store) *StoreRelationshipRepo {
	return &StoreRelationshipRepo{store: s}
}

// GetIdentity loads and normalizes a user document.
func (r *StoreRelationshipRepo) GetIdentity(ctx context.Context, uid string) (models.Identity, error) {
	data, err := r.store.Get(ctx, UserPath(uid))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Identity{}, faults.New(faults.NotFound, "user %s not found", uid)
		}
		return models.Identity{}, err
	}
	return decodeIdentity(data)
}

// PutIdentity upserts a user document.
func (r *StoreRelationshipRepo) PutIdentity(ctx context.Context, identity models.Identity) error {
	identity.Normalize()
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, UserPath(identity.UID), data)
}

// GetRequest loads a friend request document.
func (r *StoreRelationshipRepo) GetRequest(ctx context.Context, requestID string) (models.FriendRequest, error) {
	data, err := r.store.Get(ctx, RequestPath(requestID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.FriendRequest{}, faults.New(faults.NotFound, "request %s not found", requestID)
		}
		return models.FriendRequest{}, err
	}
	return decodeRequest(data)
}

// CreateRequest creates a pending request and updates both mirror sets in
// one transaction. A pending request already covering the same ordered
// (sender, receiver) pair fails with Conflict.
func (r *StoreRelationshipRepo) CreateRequest(ctx context.Context, request models.FriendRequest) error {
	return r.store.RunTransaction(ctx, func(tx store.Tx) error {
		sender, err := getIdentityTx(tx, request.SenderID)
		if err != nil {
			return err
		}
		receiver, err := getIdentityTx(tx, request.ReceiverID)
		if err != nil {
			return err
		}

		if sender.HasSentRequestTo(request.ReceiverID) {
			return faults.New(faults.Conflict, "request to %s already pending", request.ReceiverID)
		}
		if sender.HasFriend(request.ReceiverID) {
			return faults.New(faults.Conflict, "already friends with %s", request.ReceiverID)
		}

		sender.SentRequests = models.AddUID(sender.SentRequests, request.ReceiverID)
		receiver.ReceivedRequests = models.AddUID(receiver.ReceivedRequests, request.SenderID)

		if err := putRequestTx(tx, request); err != nil {
			return err
		}
		if err := putIdentityTx(tx, sender); err != nil {
			return err
		}
		return putIdentityTx(tx, receiver)
	})
}

// AcceptRequest transitions a pending request to accepted and moves both
// uids into each other's friends set. All-or-nothing: a request marked
// accepted without the friend edge is a correctness violation.
func (r *StoreRelationshipRepo) AcceptRequest(ctx context.Context, requestID string) (models.FriendRequest, error) {
	var accepted models.FriendRequest
	err := r.store.RunTransaction(ctx, func(tx store.Tx) error {
		request, err := getRequestTx(tx, requestID)
		if err != nil {
			return err
		}
		if request.Status != models.RequestPending {
			return faults.New(faults.InvalidState, "request %s is %s, not pending", requestID, request.Status)
		}

		sender, err := getIdentityTx(tx, request.SenderID)
		if err != nil {
			return err
		}
		receiver, err := getIdentityTx(tx, request.ReceiverID)
		if err != nil {
			return err
		}

		sender.Friends = models.AddUID(sender.Friends, request.ReceiverID)
		sender.SentRequests = models.RemoveUID(sender.SentRequests, request.ReceiverID)
		receiver.Friends = models.AddUID(receiver.Friends, request.SenderID)
		receiver.ReceivedRequests = models.RemoveUID(receiver.ReceivedRequests, request.SenderID)

		request.Status = models.RequestAccepted
		accepted = request

		if err := putRequestTx(tx, request); err != nil {
			return err
		}
		if err := putIdentityTx(tx, sender); err != nil {
			return err
		}
		return putIdentityTx(tx, receiver)
	})
	return accepted, err
}

// RejectRequest transitions a pending request to rejected. The pair is
// dropped from both mirror sets so a fresh request may follow; no friend
// edge is created.
func (r *StoreRelationshipRepo) RejectRequest(ctx context.Context, requestID string) (models.FriendRequest, error) {
	return r.resolveRequest(ctx, requestID, "")
}

// CancelRequest lets the sender withdraw a pending request.
func (r *StoreRelationshipRepo) CancelRequest(ctx context.Context, requestID, callerUID string) (models.FriendRequest, error) {
	if callerUID == "" {
		return models.FriendRequest{}, faults.New(faults.InvalidTarget, "caller uid required")
	}
	return r.resolveRequest(ctx, requestID, callerUID)
}

func (r *StoreRelationshipRepo) resolveRequest(ctx context.Context, requestID, requiredSender string) (models.FriendRequest, error) {
	var rejected models.FriendRequest
	err := r.store.RunTransaction(ctx, func(tx store.Tx) error {
		request, err := getRequestTx(tx, requestID)
		if err != nil {
			return err
		}
		if request.Status != models.RequestPending {
			return faults.New(faults.InvalidState, "request %s is %s, not pending", requestID, request.Status)
		}
		if requiredSender != "" && request.SenderID != requiredSender {
			return faults.New(faults.InvalidTarget, "only the sender may cancel request %s", requestID)
		}

		sender, err := getIdentityTx(tx, request.SenderID)
		if err != nil {
			return err
		}
		receiver, err := getIdentityTx(tx, request.ReceiverID)
		if err != nil {
			return err
		}

		sender.SentRequests = models.RemoveUID(sender.SentRequests, request.ReceiverID)
		receiver.ReceivedRequests = models.RemoveUID(receiver.ReceivedRequests, request.SenderID)

		request.Status = models.RequestRejected
		rejected = request

		if err := putRequestTx(tx, request); err != nil {
			return err
		}
		if err := putIdentityTx(tx, sender); err != nil {
			return err
		}
		return putIdentityTx(tx, receiver)
	})
	return rejected, err
}

// RemoveFriend severs a friendship symmetrically.
func (r *StoreRelationshipRepo) RemoveFriend(ctx context.Context, uid, friendUID string) error {
	return r.store.RunTransaction(ctx, func(tx store.Tx) error {
		self, err := getIdentityTx(tx, uid)
		if err != nil {
			return err
		}
		other, err := getIdentityTx(tx, friendUID)
		if err != nil {
			return err
		}
		if !self.HasFriend(friendUID) {
			return faults.New(faults.InvalidState, "%s is not a friend", friendUID)
		}

		self.Friends = models.RemoveUID(self.Friends, friendUID)
		other.Friends = models.RemoveUID(other.Friends, uid)

		if err := putIdentityTx(tx, self); err != nil {
			return err
		}
		return putIdentityTx(tx, other)
	})
}

// WatchIdentity opens a push subscription on a single user document.
func (r *StoreRelationshipRepo) WatchIdentity(ctx context.Context, uid string) (store.Watch, error) {
	return r.store.Subscribe(ctx, UserPath(uid))
}

func getIdentityTx(tx store.Tx, uid string) (models.Identity, error) {
	data, err := tx.Get(UserPath(uid))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Identity{}, faults.New(faults.NotFound, "user %s not found", uid)
		}
		return models.Identity{}, err
	}
	return decodeIdentity(data)
}

func putIdentityTx(tx store.Tx, identity models.Identity) error {
	identity.Normalize()
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	tx.Set(UserPath(identity.UID), data)
	return nil
}

func getRequestTx(tx store.Tx, requestID string) (models.FriendRequest, error) {
	data, err := tx.Get(RequestPath(requestID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.FriendRequest{}, faults.New(faults.NotFound, "request %s not found", requestID)
		}
		return models.FriendRequest{}, err
	}
	return decodeRequest(data)
}

func putRequestTx(tx store.Tx, request models.FriendRequest) error {
	data, err := json.Marshal(request)
	if err != nil {
		return err
	}
	tx.Set(RequestPath(request.ID), data)
	return nil
}

func decodeIdentity(data []byte) (models.Identity, error) {
	var identity models.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return models.Identity{}, err
	}
	identity.Normalize()
	return identity, nil
}

func decodeRequest(data []byte) (models.FriendRequest, error) {
	var request models.FriendRequest
	if err := json.Unmarshal(data, &request); err != nil {
		return models.FriendRequest{}, err
	}
	request.Normalize()
	return request, nil
}
