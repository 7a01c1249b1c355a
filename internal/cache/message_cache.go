package cache

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"proximity-sync/internal/models"
)

// MessageCache is the local read replica of remote message history. The
// remote store is authoritative: every sync replaces the conversation's
// rows wholesale instead of merging.
type MessageCache interface {
	ReplaceConversation(ctx context.Context, conversationID string, messages []models.Message) error
	Messages(ctx context.Context, conversationID string) ([]models.Message, error)
	Clear(ctx context.Context, conversationID string) error
}

// SQLMessageCache is the sqlx/sqlite implementation.
type SQLMessageCache struct {
	db *sqlx.DB
}

// NewMessageCache constructs a SQLMessageCache.
func NewMessageCache(db *sqlx.DB) *SQLMessageCache {
	return &SQLMessageCache{db: db}
}

type cachedMessage struct {
	ID             string             `db:"id"`
	ConversationID string             `db:"conversation_id"`
	SenderID       string             `db:"sender_id"`
	SenderName     string             `db:"sender_name"`
	Content        string             `db:"content"`
	Type           models.MessageType `db:"type"`
	CreatedAt      time.Time          `db:"created_at"`
}

// ReplaceConversation swaps the conversation's cached rows for the given
// window in one transaction.
func (c *SQLMessageCache) ReplaceConversation(ctx context.Context, conversationID string, messages []models.Message) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cached_messages WHERE conversation_id=$1`, conversationID); err != nil {
		return err
	}
	for _, msg := range messages {
		msg.Normalize()
		if _, err := tx.ExecContext(ctx, `INSERT INTO cached_messages
            (id, conversation_id, sender_id, sender_name, content, type, created_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			msg.ID, conversationID, msg.SenderID, msg.SenderName, msg.Content, msg.Type, msg.CreatedAt.UTC()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Messages returns the cached window, ascending by timestamp. Display
// reads come here only; they never touch the remote store.
func (c *SQLMessageCache) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var rows []cachedMessage
	err := c.db.SelectContext(ctx, &rows, `SELECT id, conversation_id, sender_id, sender_name, content, type, created_at
        FROM cached_messages WHERE conversation_id=$1 ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		msg := models.Message{
			ID:             row.ID,
			ConversationID: row.ConversationID,
			SenderID:       row.SenderID,
			SenderName:     row.SenderName,
			Content:        row.Content,
			Type:           row.Type,
			CreatedAt:      row.CreatedAt,
		}
		msg.Normalize()
		messages = append(messages, msg)
	}
	return messages, nil
}

// Clear purges one conversation's cached rows. Used by explicit
// cache-clear only; subscription teardown leaves rows in place.
func (c *SQLMessageCache) Clear(ctx context.Context, conversationID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM cached_messages WHERE conversation_id=$1`, conversationID)
	return err
}
