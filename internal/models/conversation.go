package models

import (
	"sort"
	"strings"
	"time"
)

// ParticipantMeta is the denormalized display info stored per participant
// so list rendering needs no extra identity lookup.
type ParticipantMeta struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Conversation is a direct conversation between exactly two users. Its ID
// is deterministic in the participant pair, so repeated creation for the
// same pair is idempotent.
type Conversation struct {
	ID                  string                     `json:"id"`
	Participants        []string                   `json:"participants"`
	ParticipantMeta     map[string]ParticipantMeta `json:"participant_meta"`
	LastMessage         string                     `json:"last_message"`
	LastMessageSenderID string                     `json:"last_message_sender_id"`
	LastMessageAt       time.Time                  `json:"last_message_at"`
	UnreadCounts        map[string]int             `json:"unread_counts"`
	SeenBy              []string                   `json:"seen_by"`
	CreatedAt           time.Time                  `json:"created_at"`
}

// Normalize fills defaults for partially-populated legacy documents.
func (c *Conversation) Normalize() {
	if c.Participants == nil {
		c.Participants = []string{}
	}
	if c.ParticipantMeta == nil {
		c.ParticipantMeta = map[string]ParticipantMeta{}
	}
	if c.UnreadCounts == nil {
		c.UnreadCounts = map[string]int{}
	}
	if c.SeenBy == nil {
		c.SeenBy = []string{}
	}
}

// OtherParticipant resolves the non-self participant of the pair.
func (c *Conversation) OtherParticipant(selfID string) string {
	for _, uid := range c.Participants {
		if uid != selfID {
			return uid
		}
	}
	return ""
}

// HasParticipant reports whether uid belongs to the conversation.
func (c *Conversation) HasParticipant(uid string) bool {
	return containsUID(c.Participants, uid)
}

// ConversationID computes the deterministic, order-independent id for a
// participant pair.
func ConversationID(uidA, uidB string) string {
	pair := []string{uidA, uidB}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}
