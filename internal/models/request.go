package models

import "time"

// RequestStatus is the lifecycle state of a friend request. Requests make
// exactly one terminal transition and are never deleted.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// FriendRequest is a directed request document. At most one pending request
// may exist per ordered (SenderID, ReceiverID) pair; the reverse direction
// is an independent request.
type FriendRequest struct {
	ID         string        `json:"id"`
	SenderID   string        `json:"sender_id"`
	ReceiverID string        `json:"receiver_id"`
	Status     RequestStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Normalize fills defaults for legacy documents.
func (r *FriendRequest) Normalize() {
	if r.Status == "" {
		r.Status = RequestPending
	}
}
