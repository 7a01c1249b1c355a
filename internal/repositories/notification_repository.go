package repositories

import (
	"context"
	"sort"

	"proximity-sync/internal/models"
	"proximity-sync/internal/store"
)

// NotificationRepository persists activity feed events per user.
type NotificationRepository interface {
	Append(ctx context.Context, event models.NotificationEvent) error
	ListForUser(ctx context.Context, uid string) ([]models.NotificationEvent, error)
	MarkAllRead(ctx context.Context, uid string) error
	WatchForUser(ctx context.Context, uid string) (store.Watch, error)
}

// StoreNotificationRepo is the document-store implementation.
type StoreNotificationRepo struct {
	store store.Store
}

// NewNotificationRepo constructs a StoreNotificationRepo.
func NewNotificationRepo(s store.Store) *StoreNotificationRepo {
	return &StoreNotificationRepo{store: s}
}

// Append stores one feed event for its target user.
func (r *StoreNotificationRepo) Append(ctx context.Context, event models.NotificationEvent) error {
	event.Normalize()
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, NotificationPath(event.UserID, event.ID), data)
}

// ListForUser returns the user's feed, most recent first.
func (r *StoreNotificationRepo) ListForUser(ctx context.Context, uid string) ([]models.NotificationEvent, error) {
	docs, err := r.store.List(ctx, NotificationPrefix(uid))
	if err != nil {
		return nil, err
	}
	events := make([]models.NotificationEvent, 0, len(docs))
	for _, data := range docs {
		var event models.NotificationEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		event.Normalize()
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

// MarkAllRead flips isRead on every unread event of the user in one
// transaction.
func (r *StoreNotificationRepo) MarkAllRead(ctx context.Context, uid string) error {
	docs, err := r.store.List(ctx, NotificationPrefix(uid))
	if err != nil {
		return err
	}
	return r.store.RunTransaction(ctx, func(tx store.Tx) error {
		for path := range docs {
			data, err := tx.Get(path)
			if err != nil {
				continue
			}
			var event models.NotificationEvent
			if err := json.Unmarshal(data, &event); err != nil {
				continue
			}
			if event.IsRead {
				continue
			}
			event.IsRead = true
			updated, err := json.Marshal(event)
			if err != nil {
				return err
			}
			tx.Set(path, updated)
		}
		return nil
	})
}

// WatchForUser subscribes to the user's feed changes.
func (r *StoreNotificationRepo) WatchForUser(ctx context.Context, uid string) (store.Watch, error) {
	return r.store.Subscribe(ctx, NotificationPrefix(uid))
}
