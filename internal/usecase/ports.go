package usecase

import (
	"context"
	"crypto/rsa"

	"github.com/wisteria-social/federation/internal/domain"
)

// PersonRepository defines persistence/lookup for federated identities.
// Get resolves unknown remote persons through the federation client and
// caches them; it returns domain.ErrNotFound when resolution fails.
type PersonRepository interface {
	Get(ctx context.Context, diasporaID string) (domain.Person, error)
	GetByGUID(ctx context.Context, guid string) (domain.Person, error)
	Register(ctx context.Context, person domain.Person) error
	PublicKey(ctx context.Context, diasporaID string) (*rsa.PublicKey, error)
	PrivateKey(ctx context.Context, diasporaID string) (*rsa.PrivateKey, error)
}

// EntityRepository defines persistence for entities accepted by the
// receive pipeline.
type EntityRepository interface {
	Save(ctx context.Context, received domain.ReceivedEntity) (domain.ReceivedEntity, error)
	Recent(ctx context.Context, limit int) ([]domain.ReceivedEntity, error)
}

// DedupRepository tracks envelope digests that were already processed.
// MarkSeen returns false when the digest was seen before.
type DedupRepository interface {
	MarkSeen(ctx context.Context, digest string) (bool, error)
}

// SignalPublisher fans accepted entities out to realtime listeners.
type SignalPublisher interface {
	Publish(ctx context.Context, channel string, event domain.Event) error
}
