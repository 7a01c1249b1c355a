package mergelist

import (
	"context"
	"sync"
	"time"

	"proximity-sync/internal/models"
	"proximity-sync/internal/repositories"
)

// RepoMetaResolver resolves display metadata from identity documents,
// memoizing results for the session's lifetime.
type RepoMetaResolver struct {
	repo    repositories.RelationshipRepository
	timeout time.Duration

	mu   sync.Mutex
	memo map[string]models.ParticipantMeta
}

// NewRepoMetaResolver constructs a RepoMetaResolver.
func NewRepoMetaResolver(repo repositories.RelationshipRepository, timeout time.Duration) *RepoMetaResolver {
	return &RepoMetaResolver{
		repo:    repo,
		timeout: timeout,
		memo:    make(map[string]models.ParticipantMeta),
	}
}

// Meta returns the user's display metadata, falling back to the raw uid
// when the identity cannot be loaded.
func (r *RepoMetaResolver) Meta(uid string) models.ParticipantMeta {
	r.mu.Lock()
	if meta, ok := r.memo[uid]; ok {
		r.mu.Unlock()
		return meta
	}
	r.mu.Unlock()

	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	identity, err := r.repo.GetIdentity(ctx, uid)
	if err != nil {
		return models.ParticipantMeta{DisplayName: uid}
	}

	meta := identity.Meta()
	r.mu.Lock()
	r.memo[uid] = meta
	r.mu.Unlock()
	return meta
}

// Forget drops a memoized entry, e.g. after a profile update.
func (r *RepoMetaResolver) Forget(uid string) {
	r.mu.Lock()
	delete(r.memo, uid)
	r.mu.Unlock()
}
