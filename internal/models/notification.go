package models

import "time"

// NotificationType discriminates activity feed entries.
type NotificationType string

const (
	NotificationFriendRequest  NotificationType = "friend_request"
	NotificationFriendAccepted NotificationType = "friend_accepted"
	NotificationGeneric        NotificationType = "generic"
)

// NotificationEvent is one entry in a user's activity feed. For
// friend_request events ActionRef carries the originating request id so
// accept/reject actions can route back to the relationship service.
type NotificationEvent struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Type       NotificationType `json:"type"`
	SenderID   string           `json:"sender_id"`
	SenderMeta ParticipantMeta  `json:"sender_meta"`
	Message    string           `json:"message"`
	IsRead     bool             `json:"is_read"`
	ActionRef  string           `json:"action_ref"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Normalize fills defaults for legacy documents.
func (n *NotificationEvent) Normalize() {
	if n.Type == "" {
		n.Type = NotificationGeneric
	}
}
