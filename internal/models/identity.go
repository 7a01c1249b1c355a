package models

// Identity is the per-user document. Friends, SentRequests and
// ReceivedRequests are mirror sets: an accepted request moves both uids
// into each other's Friends atomically, a pending request puts the target
// in the sender's SentRequests and the sender in the target's
// ReceivedRequests.
type Identity struct {
	UID              string   `json:"uid"`
	Username         string   `json:"username"`
	Discriminator    string   `json:"discriminator"`
	InviteCode       string   `json:"invite_code"`
	AvatarURL        string   `json:"avatar_url"`
	IsPrivate        bool     `json:"is_private"`
	Friends          []string `json:"friends"`
	SentRequests     []string `json:"sent_requests"`
	ReceivedRequests []string `json:"received_requests"`
}

// Normalize fills defaults so partially-populated legacy documents are safe
// to use. Called at the deserialization boundary.
func (i *Identity) Normalize() {
	if i.Friends == nil {
		i.Friends = []string{}
	}
	if i.SentRequests == nil {
		i.SentRequests = []string{}
	}
	if i.ReceivedRequests == nil {
		i.ReceivedRequests = []string{}
	}
}

// HasFriend reports mutual-set membership from this side.
func (i *Identity) HasFriend(uid string) bool { return containsUID(i.Friends, uid) }

// HasSentRequestTo reports a pending outgoing request to uid.
func (i *Identity) HasSentRequestTo(uid string) bool { return containsUID(i.SentRequests, uid) }

// HasReceivedRequestFrom reports a pending incoming request from uid.
func (i *Identity) HasReceivedRequestFrom(uid string) bool {
	return containsUID(i.ReceivedRequests, uid)
}

// Meta projects the presentation fields of the identity.
func (i *Identity) Meta() ParticipantMeta {
	return ParticipantMeta{DisplayName: i.Username, AvatarURL: i.AvatarURL}
}

// RelationshipStatus is the derived pairwise status between two identities.
// It is never persisted; it is recomputed from the mirror sets on demand.
type RelationshipStatus string

const (
	StatusSelf            RelationshipStatus = "self"
	StatusFriend          RelationshipStatus = "friend"
	StatusSentRequest     RelationshipStatus = "sent_request"
	StatusReceivedRequest RelationshipStatus = "received_request"
	StatusNone            RelationshipStatus = "none"
)

func containsUID(set []string, uid string) bool {
	for _, member := range set {
		if member == uid {
			return true
		}
	}
	return false
}

// AddUID inserts uid into the set if absent.
func AddUID(set []string, uid string) []string {
	if containsUID(set, uid) {
		return set
	}
	return append(set, uid)
}

// RemoveUID drops uid from the set, preserving order.
func RemoveUID(set []string, uid string) []string {
	out := set[:0]
	for _, member := range set {
		if member != uid {
			out = append(out, member)
		}
	}
	return out
}
