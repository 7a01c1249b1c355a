package mergelist

import (
	"sort"
	"strings"
	"sync"
	"time"

	"proximity-sync/internal/models"
	"proximity-sync/internal/observability"
	"proximity-sync/internal/streams"
)

// IdentitySource is the live friends-set input.
type IdentitySource interface {
	C() <-chan models.Identity
	Cancel()
}

// ConversationSource is the live conversation-snapshot input.
type ConversationSource interface {
	C() <-chan []models.Conversation
	Cancel()
}

// MetaResolver supplies display metadata for friends that have no
// conversation yet.
type MetaResolver interface {
	Meta(uid string) models.ParticipantMeta
}

// Engine combines the friends set, the conversation snapshot and the
// UI-provided search/filter state into one sorted presentation list.
// Combine-latest: any single input emission triggers exactly one
// recomputation against the latest value of the other two, guarded by a
// single lock so no recompute observes a half-updated input.
type Engine struct {
	selfUID  string
	resolver MetaResolver

	mu            sync.Mutex
	identity      models.Identity
	conversations []models.Conversation
	query         string
	filter        models.ListFilter

	out *streams.Broker[[]models.ListEntry]

	identSource IdentitySource
	convSource  ConversationSource
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

// NewEngine wires both upstream sources and starts recomputing. The first
// snapshot is published once an input delivers.
func NewEngine(selfUID string, identities IdentitySource, conversations ConversationSource, resolver MetaResolver) *Engine {
	e := &Engine{
		selfUID:     selfUID,
		resolver:    resolver,
		filter:      models.FilterAll,
		out:         streams.NewBroker[[]models.ListEntry](),
		identSource: identities,
		convSource:  conversations,
	}

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		for identity := range identities.C() {
			e.mu.Lock()
			e.identity = identity
			e.recomputeLocked()
			e.mu.Unlock()
		}
	}()
	go func() {
		defer e.wg.Done()
		for snapshot := range conversations.C() {
			e.mu.Lock()
			e.conversations = snapshot
			e.recomputeLocked()
			e.mu.Unlock()
		}
	}()
	return e
}

// Subscribe returns a stream of merged list snapshots.
func (e *Engine) Subscribe() *streams.Subscription[[]models.ListEntry] {
	return e.out.Subscribe()
}

// SetSearch updates the query input and recomputes.
func (e *Engine) SetSearch(query string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.query = query
	e.recomputeLocked()
}

// SetFilter updates the filter input and recomputes.
func (e *Engine) SetFilter(filter models.ListFilter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if filter == "" {
		filter = models.FilterAll
	}
	e.filter = filter
	e.recomputeLocked()
}

// Snapshot recomputes and returns the current list without publishing.
func (e *Engine) Snapshot() []models.ListEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mergeLocked()
}

// Close cancels both upstream subscriptions and ends the output stream.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.identSource.Cancel()
		e.convSource.Cancel()
		e.wg.Wait()
		e.out.Close()
	})
}

func (e *Engine) recomputeLocked() {
	start := time.Now()
	entries := e.mergeLocked()
	observability.ObserveMergeRecompute(time.Since(start))
	observability.IncStreamEmission("merged_list")
	e.out.Publish(entries)
}

func (e *Engine) mergeLocked() []models.ListEntry {
	entries := make([]models.ListEntry, 0, len(e.conversations)+len(e.identity.Friends))
	covered := make(map[string]bool, len(e.conversations))

	// One entry per conversation, keyed by the non-self participant.
	for _, conversation := range e.conversations {
		target := conversation.OtherParticipant(e.selfUID)
		if target == "" {
			continue
		}
		meta, ok := conversation.ParticipantMeta[target]
		if !ok || meta.DisplayName == "" {
			meta = e.resolveMeta(target)
		}
		covered[target] = true
		entries = append(entries, models.ListEntry{
			TargetUserID:   target,
			ConversationID: conversation.ID,
			DisplayName:    meta.DisplayName,
			AvatarURL:      meta.AvatarURL,
			LastMessage:    conversation.LastMessage,
			LastTimestamp:  conversation.LastMessageAt,
			UnreadCount:    conversation.UnreadCounts[e.selfUID],
			IsFriend:       e.identity.HasFriend(target),
		})
	}

	// Synthetic entries for friends without a conversation.
	for _, friendUID := range e.identity.Friends {
		if covered[friendUID] {
			continue
		}
		meta := e.resolveMeta(friendUID)
		entries = append(entries, models.ListEntry{
			TargetUserID: friendUID,
			DisplayName:  meta.DisplayName,
			AvatarURL:    meta.AvatarURL,
			LastMessage:  "Start a conversation",
			IsFriend:     true,
		})
	}

	entries = applyFilter(entries, e.filter)
	entries = applySearch(entries, e.query)
	sortEntries(entries)
	return entries
}

func (e *Engine) resolveMeta(uid string) models.ParticipantMeta {
	if e.resolver == nil {
		return models.ParticipantMeta{DisplayName: uid}
	}
	meta := e.resolver.Meta(uid)
	if meta.DisplayName == "" {
		meta.DisplayName = uid
	}
	return meta
}

func applyFilter(entries []models.ListEntry, filter models.ListFilter) []models.ListEntry {
	if filter == models.FilterAll || filter == "" {
		return entries
	}
	out := entries[:0]
	for _, entry := range entries {
		switch filter {
		case models.FilterContacts:
			if entry.IsFriend {
				out = append(out, entry)
			}
		case models.FilterUnknown:
			if !entry.IsFriend {
				out = append(out, entry)
			}
		case models.FilterNew:
			// Synthetic friend-only entries always have zero unread and
			// drop out here.
			if entry.UnreadCount > 0 {
				out = append(out, entry)
			}
		}
	}
	return out
}

func applySearch(entries []models.ListEntry, query string) []models.ListEntry {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return entries
	}
	out := entries[:0]
	for _, entry := range entries {
		if strings.Contains(strings.ToLower(entry.DisplayName), query) {
			out = append(out, entry)
		}
	}
	return out
}

// sortEntries orders by last activity descending; entries with no
// timestamp sort last; ties break on unread count descending, then on
// target uid for determinism.
func sortEntries(entries []models.ListEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		aZero, bZero := a.LastTimestamp.IsZero(), b.LastTimestamp.IsZero()
		if aZero != bZero {
			return bZero
		}
		if !a.LastTimestamp.Equal(b.LastTimestamp) {
			return a.LastTimestamp.After(b.LastTimestamp)
		}
		if a.UnreadCount != b.UnreadCount {
			return a.UnreadCount > b.UnreadCount
		}
		return a.TargetUserID < b.TargetUserID
	})
}
