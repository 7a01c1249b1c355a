package engine

import (
	"context"
	"sync"
	"time"

	"proximity-sync/internal/cache"
	"proximity-sync/internal/directory"
	"proximity-sync/internal/feed"
	"proximity-sync/internal/logging"
	"proximity-sync/internal/mergelist"
	"proximity-sync/internal/relationship"
	"proximity-sync/internal/repositories"
	"proximity-sync/internal/store"
	"proximity-sync/internal/ws"
)

// Deps bundles the services a session is built from.
type Deps struct {
	Relationships *relationship.Service
	Directory     *directory.Service
	Feed          *feed.Aggregator
	Notifications repositories.NotificationRepository
	Identities    repositories.RelationshipRepository
	Cache         cache.MessageCache
	Hub           *ws.Hub
	MirrorWindow  int
	OpTimeout     time.Duration
}

// Session is the per-user runtime: the live identity and conversation
// subscriptions, the merge engine feeding the presentation bridge, and
// the local mirrors for conversations the user has open. Close tears all
// of it down; cached rows survive.
type Session struct {
	UID   string
	Merge *mergelist.Engine

	deps      Deps
	feedWatch store.Watch

	mu      sync.Mutex
	mirrors map[string]*cache.Mirror

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Open boots a session for the user: identity and conversation streams
// start immediately and the first merged snapshot reaches the bridge as
// soon as both inputs deliver.
func Open(ctx context.Context, uid string, deps Deps) (*Session, error) {
	identityStream, err := deps.Relationships.StreamIdentity(ctx, uid)
	if err != nil {
		return nil, err
	}

	conversationStream, err := deps.Directory.StreamConversations(ctx, uid)
	if err != nil {
		identityStream.Cancel()
		return nil, err
	}

	resolver := mergelist.NewRepoMetaResolver(deps.Identities, deps.OpTimeout)
	merge := mergelist.NewEngine(uid, identityStream, conversationStream, resolver)

	s := &Session{
		UID:     uid,
		Merge:   merge,
		deps:    deps,
		mirrors: make(map[string]*cache.Mirror),
	}

	if deps.Hub != nil {
		listSub := merge.Subscribe()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for entries := range listSub.C() {
				deps.Hub.BroadcastList(uid, entries)
			}
		}()

		if deps.Notifications != nil {
			feedWatch, err := deps.Notifications.WatchForUser(ctx, uid)
			if err != nil {
				logging.L().Warnw("feed watch unavailable", "uid", uid, "error", err)
			} else {
				s.feedWatch = feedWatch
				s.wg.Add(1)
				go func() {
					defer s.wg.Done()
					for range feedWatch.C() {
						buckets, err := deps.Feed.Feed(context.Background(), uid, time.Now())
						if err != nil {
							logging.L().Warnw("feed refresh failed", "uid", uid, "error", err)
							continue
						}
						deps.Hub.BroadcastFeed(uid, buckets)
					}
				}()
			}
		}
	}

	return s, nil
}

// OpenMirror starts mirroring a conversation's recent messages into the
// local cache. Opening an already-mirrored conversation is a no-op.
func (s *Session) OpenMirror(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mirrors[conversationID]; ok {
		return nil
	}

	stream, err := s.deps.Directory.StreamMessages(ctx, conversationID, s.deps.MirrorWindow)
	if err != nil {
		return err
	}
	s.mirrors[conversationID] = cache.NewMirror(conversationID, s.deps.Cache, stream)
	return nil
}

// CloseMirror stops mirroring one conversation. Its cached rows stay for
// instant next-open display.
func (s *Session) CloseMirror(conversationID string) {
	s.mu.Lock()
	mirror, ok := s.mirrors[conversationID]
	delete(s.mirrors, conversationID)
	s.mu.Unlock()
	if ok {
		mirror.Cancel()
	}
}

// Close cancels every subscription the session holds.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		mirrors := make([]*cache.Mirror, 0, len(s.mirrors))
		for _, mirror := range s.mirrors {
			mirrors = append(mirrors, mirror)
		}
		s.mirrors = make(map[string]*cache.Mirror)
		s.mu.Unlock()

		for _, mirror := range mirrors {
			mirror.Cancel()
		}
		if s.feedWatch != nil {
			s.feedWatch.Cancel()
		}
		s.Merge.Close()
		s.wg.Wait()
	})
}
