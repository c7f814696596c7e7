package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

type principalKey struct{}

// WithPrincipal returns a context carrying the authenticated principal
// (the user's email).
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// Principal returns the principal carried by ctx, if any.
func Principal(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(principalKey{}).(string)
	p = strings.TrimSpace(p)
	return p, ok && p != ""
}

// UserLookup finds users by email.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*crm.User, error)
}

// Resolver turns the context principal into a stable user id.
type Resolver struct {
	users  UserLookup
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewResolver creates a Resolver. A nil cache disables caching.
func NewResolver(users UserLookup, cache Cache, ttl time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{users: users, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(principal string) string {
	return "user-id:" + principal
}

// CurrentUser returns the id of the user identified by the context
// principal. It fails with crm.ErrUnauthenticated when no principal is
// present and crm.ErrNotFound when the principal matches no user.
func (r *Resolver) CurrentUser(ctx context.Context) (string, error) {
	principal, ok := Principal(ctx)
	if !ok {
		return "", crm.ErrUnauthenticated
	}
	principal = crm.NormalizeEmail(principal)

	key := cacheKey(principal)
	if r.cache != nil {
		id, err := r.cache.Get(ctx, key)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			// A broken cache degrades to a direct lookup.
			r.logger.Warn("user cache read failed", zap.String("principal", principal), zap.Error(err))
		}
	}

	user, err := r.users.GetUserByEmail(ctx, principal)
	if err != nil {
		if errors.Is(err, crm.ErrNotFound) {
			return "", crm.NotFoundf("user not found")
		}
		return "", err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, user.ID, r.ttl); err != nil {
			r.logger.Warn("user cache write failed", zap.String("principal", principal), zap.Error(err))
		}
	}
	return user.ID, nil
}

// Forget drops the cached lookup for principal.
func (r *Resolver) Forget(ctx context.Context, principal string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Expire(ctx, cacheKey(crm.NormalizeEmail(principal)))
}
