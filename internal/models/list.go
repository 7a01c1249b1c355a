package models

import "time"

// ListFilter selects which merged entries survive filtering.
type ListFilter string

const (
	FilterAll      ListFilter = "all"
	FilterContacts ListFilter = "contacts"
	FilterUnknown  ListFilter = "unknown"
	FilterNew      ListFilter = "new"
)

// ListEntry is one row of the merged presentation list. Entries backed only
// by a friendship carry an empty ConversationID and a zero LastTimestamp.
type ListEntry struct {
	TargetUserID   string    `json:"target_user_id"`
	ConversationID string    `json:"conversation_id"`
	DisplayName    string    `json:"display_name"`
	AvatarURL      string    `json:"avatar_url"`
	LastMessage    string    `json:"last_message"`
	LastTimestamp  time.Time `json:"last_timestamp"`
	UnreadCount    int       `json:"unread_count"`
	IsFriend       bool      `json:"is_friend"`
}
