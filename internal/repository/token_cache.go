package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/storefront-api/internal/utils"
)

// TokenCache mirrors blacklist entries into Redis so that most revoked
// tokens are rejected without a MySQL round trip.  Keys are the SHA-256 of
// the token and expire together with it.
type TokenCache struct {
	rdb    *redis.Client
	prefix string
}

// NewTokenCache returns nil when rdb is nil; a nil *TokenCache is a valid
// no-op cache.
func NewTokenCache(rdb *redis.Client, prefix string) *TokenCache {
	if rdb == nil {
		return nil
	}
	if prefix == "" {
		prefix = "storefront:bl"
	}
	return &TokenCache{rdb: rdb, prefix: prefix}
}

func (c *TokenCache) key(token string) string { return c.prefix + ":" + utils.HashToken(token) }

// MarkRevoked records token as revoked until exp.  Tokens that already
// expired are not cached.
func (c *TokenCache) MarkRevoked(ctx context.Context, token string, exp time.Time) error {
	if c == nil {
		return nil
	}
	ttl := time.Until(exp)
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, c.key(token), "1", ttl).Err()
}

// IsRevoked reports a cache hit.  A miss says nothing; the caller must
// consult the table.
func (c *TokenCache) IsRevoked(ctx context.Context, token string) (bool, error) {
	if c == nil {
		return false, nil
	}
	err := c.rdb.Get(ctx, c.key(token)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}
