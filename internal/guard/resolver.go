package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

var ErrUnknownUser = errors.New("unknown user")

//go:generate mockgen -source=resolver.go -destination=repository_mock.go -package=guard
type Repository interface {
	// GetRoles returns ErrUnknownUser when the user does not exist.
	GetRoles(ctx context.Context, userID uuid.UUID) ([]Role, error)
	ListMemberships(ctx context.Context, userID uuid.UUID) ([]Membership, error)
}

// Resolver builds identities from the user tables, caching them for a short TTL so a burst of
// CLI or batch calls does not reload memberships each time.
type Resolver struct {
	repo  Repository
	cache *gocache.Cache
}

func NewResolver(repo Repository, ttl time.Duration) *Resolver {
	return &Resolver{repo: repo, cache: gocache.New(ttl, 2*ttl)}
}

func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (Identity, error) {
	if v, ok := r.cache.Get(userID.String()); ok {
		return v.(Identity), nil
	}

	roles, err := r.repo.GetRoles(ctx, userID)
	if err != nil {
		return Identity{}, fmt.Errorf("loading roles: %w", err)
	}

	memberships, err := r.repo.ListMemberships(ctx, userID)
	if err != nil {
		return Identity{}, fmt.Errorf("loading memberships: %w", err)
	}

	id := Identity{UserID: userID, Roles: roles, Memberships: memberships}
	r.cache.SetDefault(userID.String(), id)

	return id, nil
}

// Forget drops a cached identity after its memberships change.
func (r *Resolver) Forget(userID uuid.UUID) {
	r.cache.Delete(userID.String())
}
