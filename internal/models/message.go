package models

import "time"

// MessageType discriminates message payloads.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageSystem MessageType = "system"
)

// Message is immutable once written. Canonical ordering is CreatedAt
// ascending; presentation renders newest last.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	SenderName     string      `json:"sender_name"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Normalize fills defaults for legacy documents.
func (m *Message) Normalize() {
	if m.Type == "" {
		m.Type = MessageText
	}
}
