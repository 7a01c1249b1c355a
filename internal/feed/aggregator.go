package feed

import (
	"context"
	"sort"
	"time"

	"proximity-sync/internal/models"
	"proximity-sync/internal/repositories"
)

// Buckets is the time-windowed activity feed. Boundaries are the
// consumer's local midnights, computed once per aggregation from "now";
// each bucket keeps most-recent-first order.
type Buckets struct {
	Today     []models.NotificationEvent `json:"today"`
	Yesterday []models.NotificationEvent `json:"yesterday"`
	Last7Days []models.NotificationEvent `json:"last_7_days"`
	Older     []models.NotificationEvent `json:"older"`
}

// Unread counts the events not yet marked read across all buckets.
func (b Buckets) Unread() int {
	count := 0
	for _, bucket := range [][]models.NotificationEvent{b.Today, b.Yesterday, b.Last7Days, b.Older} {
		for _, event := range bucket {
			if !event.IsRead {
				count++
			}
		}
	}
	return count
}

// Bucketize splits events by local midnight boundaries. An event stamped
// exactly at midnight belongs to today.
func Bucketize(events []models.NotificationEvent, now time.Time) Buckets {
	sorted := make([]models.NotificationEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterday := midnight.AddDate(0, 0, -1)
	weekAgo := midnight.AddDate(0, 0, -7)

	var buckets Buckets
	for _, event := range sorted {
		ts := event.CreatedAt.In(now.Location())
		switch {
		case !ts.Before(midnight):
			buckets.Today = append(buckets.Today, event)
		case !ts.Before(yesterday):
			buckets.Yesterday = append(buckets.Yesterday, event)
		case !ts.Before(weekAgo):
			buckets.Last7Days = append(buckets.Last7Days, event)
		default:
			buckets.Older = append(buckets.Older, event)
		}
	}
	return buckets
}

// Aggregator serves a user's bucketed activity feed from the notification
// store.
type Aggregator struct {
	notifications repositories.NotificationRepository
}

// NewAggregator constructs an Aggregator.
func NewAggregator(notifications repositories.NotificationRepository) *Aggregator {
	return &Aggregator{notifications: notifications}
}

// Feed loads the user's events and buckets them against now.
func (a *Aggregator) Feed(ctx context.Context, uid string, now time.Time) (Buckets, error) {
	events, err := a.notifications.ListForUser(ctx, uid)
	if err != nil {
		return Buckets{}, repositories.Classify(err, "load activity feed")
	}
	return Bucketize(events, now), nil
}

// UnreadCount reports how many of the user's events are unread.
func (a *Aggregator) UnreadCount(ctx context.Context, uid string) (int, error) {
	events, err := a.notifications.ListForUser(ctx, uid)
	if err != nil {
		return 0, repositories.Classify(err, "count unread notifications")
	}
	count := 0
	for _, event := range events {
		if !event.IsRead {
			count++
		}
	}
	return count, nil
}

// MarkAllRead flips every unread event for the user.
func (a *Aggregator) MarkAllRead(ctx context.Context, uid string) error {
	return repositories.Classify(a.notifications.MarkAllRead(ctx, uid), "mark feed read")
}
