package mergelist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"proximity-sync/internal/models"
)

type fakeIdentitySource struct {
	ch chan models.Identity
}

func (f *fakeIdentitySource) C() <-chan models.Identity { return f.ch }
func (f *fakeIdentitySource) Cancel()                   { close(f.ch) }

type fakeConversationSource struct {
	ch chan []models.Conversation
}

func (f *fakeConversationSource) C() <-chan []models.Conversation { return f.ch }
func (f *fakeConversationSource) Cancel()                         { close(f.ch) }

type staticResolver map[string]models.ParticipantMeta

func (r staticResolver) Meta(uid string) models.ParticipantMeta {
	if meta, ok := r[uid]; ok {
		return meta
	}
	return models.ParticipantMeta{DisplayName: uid}
}

func newTestEngine(t *testing.T, resolver MetaResolver) (*Engine, *fakeIdentitySource, *fakeConversationSource) {
	t.Helper()
	identities := &fakeIdentitySource{ch: make(chan models.Identity, 4)}
	conversations := &fakeConversationSource{ch: make(chan []models.Conversation, 4)}
	engine := NewEngine("self", identities, conversations, resolver)
	t.Cleanup(engine.Close)
	return engine, identities, conversations
}

func await[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
	panic("unreachable")
}

// fixture: friend F with an old read conversation, non-friend C with a
// fresher unread one, and friend G with no conversation at all.
func fixtureInputs() (models.Identity, []models.Conversation) {
	identity := models.Identity{
		UID:     "self",
		Friends: []string{"F", "G"},
	}
	conversations := []models.Conversation{
		{
			ID:           models.ConversationID("self", "F"),
			Participants: []string{"F", "self"},
			ParticipantMeta: map[string]models.ParticipantMeta{
				"F": {DisplayName: "Frida"},
			},
			LastMessage:   "see you there",
			LastMessageAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
			UnreadCounts:  map[string]int{"self": 0},
		},
		{
			ID:           models.ConversationID("self", "C"),
			Participants: []string{"C", "self"},
			ParticipantMeta: map[string]models.ParticipantMeta{
				"C": {DisplayName: "Casey"},
			},
			LastMessage:   "hey, nice to meet you",
			LastMessageAt: time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC),
			UnreadCounts:  map[string]int{"self": 3},
		},
	}
	return identity, conversations
}

func targets(entries []models.ListEntry) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.TargetUserID)
	}
	return out
}

func TestEngineMergesAndSorts(t *testing.T) {
	engine, identities, conversations := newTestEngine(t, staticResolver{
		"G": {DisplayName: "Greta"},
	})
	sub := engine.Subscribe()

	identity, convs := fixtureInputs()
	identities.ch <- identity
	await(t, sub.C())
	conversations.ch <- convs
	entries := await(t, sub.C())

	// C is newest, then F; G has no conversation and sorts last.
	require.Equal(t, []string{"C", "F", "G"}, targets(entries))

	require.False(t, entries[0].IsFriend)
	require.Equal(t, 3, entries[0].UnreadCount)
	require.Equal(t, "Casey", entries[0].DisplayName)

	require.True(t, entries[1].IsFriend)
	require.Equal(t, "Frida", entries[1].DisplayName)

	require.True(t, entries[2].IsFriend)
	require.Equal(t, "Greta", entries[2].DisplayName)
	require.Equal(t, "", entries[2].ConversationID)
	require.Equal(t, "Start a conversation", entries[2].LastMessage)
	require.True(t, entries[2].LastTimestamp.IsZero())
}

func TestEngineFilters(t *testing.T) {
	engine, identities, conversations := newTestEngine(t, staticResolver{})
	sub := engine.Subscribe()

	identity, convs := fixtureInputs()
	identities.ch <- identity
	await(t, sub.C())
	conversations.ch <- convs
	await(t, sub.C())

	engine.SetFilter(models.FilterContacts)
	require.Equal(t, []string{"F", "G"}, targets(await(t, sub.C())))

	engine.SetFilter(models.FilterUnknown)
	require.Equal(t, []string{"C"}, targets(await(t, sub.C())))

	engine.SetFilter(models.FilterNew)
	require.Equal(t, []string{"C"}, targets(await(t, sub.C())))

	engine.SetFilter(models.FilterAll)
	require.Equal(t, []string{"C", "F", "G"}, targets(await(t, sub.C())))
}

func TestEngineSearchMatchesDisplayName(t *testing.T) {
	engine, identities, conversations := newTestEngine(t, staticResolver{
		"G": {DisplayName: "Greta"},
	})
	sub := engine.Subscribe()

	identity, convs := fixtureInputs()
	identities.ch <- identity
	await(t, sub.C())
	conversations.ch <- convs
	await(t, sub.C())

	engine.SetSearch("  CAS ")
	require.Equal(t, []string{"C"}, targets(await(t, sub.C())))

	engine.SetSearch("")
	require.Equal(t, []string{"C", "F", "G"}, targets(await(t, sub.C())))
}

func TestEngineRecomputesOnEitherInput(t *testing.T) {
	engine, identities, conversations := newTestEngine(t, staticResolver{})
	sub := engine.Subscribe()

	identity, convs := fixtureInputs()
	identities.ch <- identity
	await(t, sub.C())
	conversations.ch <- convs
	first := await(t, sub.C())
	require.True(t, first[1].IsFriend, "F should be a friend initially")

	// Removing F from the friends set flips the existing entry without a
	// new conversation snapshot.
	identity.Friends = []string{"G"}
	identities.ch <- identity
	second := await(t, sub.C())
	for _, entry := range second {
		if entry.TargetUserID == "F" {
			require.False(t, entry.IsFriend)
		}
	}
}

func TestEngineFallsBackToResolverMeta(t *testing.T) {
	engine, identities, conversations := newTestEngine(t, staticResolver{
		"X": {DisplayName: "Xiomara", AvatarURL: "https://cdn/x.png"},
	})
	sub := engine.Subscribe()

	identities.ch <- models.Identity{UID: "self"}
	await(t, sub.C())
	conversations.ch <- []models.Conversation{{
		ID:           models.ConversationID("self", "X"),
		Participants: []string{"X", "self"},
		// No denormalized meta on the document.
	}}
	entries := await(t, sub.C())

	require.Len(t, entries, 1)
	require.Equal(t, "Xiomara", entries[0].DisplayName)
	require.Equal(t, "https://cdn/x.png", entries[0].AvatarURL)
}

func TestSortEntriesTieBreaks(t *testing.T) {
	ts := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	entries := []models.ListEntry{
		{TargetUserID: "b", LastTimestamp: ts, UnreadCount: 0},
		{TargetUserID: "a", LastTimestamp: ts, UnreadCount: 2},
		{TargetUserID: "c"},
		{TargetUserID: "d", LastTimestamp: ts.Add(time.Minute)},
	}
	sortEntries(entries)
	require.Equal(t, []string{"d", "a", "b", "c"}, targets(entries))
}
