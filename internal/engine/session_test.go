package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"proximity-sync/internal/cache"
	"proximity-sync/internal/directory"
	"proximity-sync/internal/feed"
	"proximity-sync/internal/models"
	"proximity-sync/internal/relationship"
	"proximity-sync/internal/repositories"
	"proximity-sync/internal/store"
)

func newTestDeps(t *testing.T) (Deps, *relationship.Service, *directory.Service) {
	t.Helper()
	docs := store.NewMemoryStore()
	identities := repositories.NewRelationshipRepo(docs)
	conversations := repositories.NewConversationRepo(docs)
	notifications := repositories.NewNotificationRepo(docs)

	db, err := cache.Connect(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	relSvc := relationship.NewService(identities, notifications, nil, 2*time.Second)
	dirSvc := directory.NewService(conversations, identities, nil, 2*time.Second)

	ctx := context.Background()
	require.NoError(t, identities.PutIdentity(ctx, models.Identity{UID: "alice", Username: "Alice"}))
	require.NoError(t, identities.PutIdentity(ctx, models.Identity{UID: "bob", Username: "Bob"}))

	return Deps{
		Relationships: relSvc,
		Directory:     dirSvc,
		Feed:          feed.NewAggregator(notifications),
		Notifications: notifications,
		Identities:    identities,
		Cache:         cache.NewMessageCache(db),
		MirrorWindow:  50,
		OpTimeout:     2 * time.Second,
	}, relSvc, dirSvc
}

func TestSessionMergesLiveInputs(t *testing.T) {
	deps, relSvc, dirSvc := newTestDeps(t)
	ctx := context.Background()

	session, err := Open(ctx, "alice", deps)
	require.NoError(t, err)
	defer session.Close()

	request, err := relSvc.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = relSvc.AcceptRequest(ctx, request.ID)
	require.NoError(t, err)

	started, err := dirSvc.StartConversation(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = dirSvc.SendMessage(ctx, started.ID, "bob", "hey alice", models.MessageText)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		entries := session.Merge.Snapshot()
		if len(entries) != 1 {
			return false
		}
		entry := entries[0]
		return entry.TargetUserID == "bob" && entry.IsFriend &&
			entry.LastMessage == "hey alice" && entry.UnreadCount == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionMirrorLifecycle(t *testing.T) {
	deps, _, dirSvc := newTestDeps(t)
	ctx := context.Background()

	session, err := Open(ctx, "alice", deps)
	require.NoError(t, err)
	defer session.Close()

	started, err := dirSvc.StartConversation(ctx, "alice", "bob")
	require.NoError(t, err)

	require.NoError(t, session.OpenMirror(ctx, started.ID))
	// Reopening the same conversation is a no-op.
	require.NoError(t, session.OpenMirror(ctx, started.ID))

	_, err = dirSvc.SendMessage(ctx, started.ID, "alice", "hello", models.MessageText)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		messages, err := deps.Cache.Messages(context.Background(), started.ID)
		return err == nil && len(messages) == 1
	}, 2*time.Second, 10*time.Millisecond)

	session.CloseMirror(started.ID)

	// Rows persist after the mirror stops.
	messages, err := deps.Cache.Messages(ctx, started.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "hello", messages[0].Content)
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	deps, _, _ := newTestDeps(t)

	session, err := Open(context.Background(), "alice", deps)
	require.NoError(t, err)

	session.Close()
	session.Close()
}
