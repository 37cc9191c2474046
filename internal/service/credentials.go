package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/utils"
)

// Blacklist records revoked access tokens.  The table behind store is
// authoritative; cache, when present, is written through on Add and
// consulted first on lookups.
type Blacklist struct {
	store BlacklistStore
	cache RevocationCache
	log   *zap.Logger
}

// NewBlacklist wires the blacklist.  cache may be nil.
func NewBlacklist(store BlacklistStore, cache RevocationCache, log *zap.Logger) *Blacklist {
	return &Blacklist{store: store, cache: cache, log: log}
}

// IsBlacklisted reports whether token has been revoked.  A cache error is
// logged and the table is consulted instead.
func (b *Blacklist) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	if b.cache != nil {
		hit, err := b.cache.IsRevoked(ctx, token)
		if err != nil {
			b.log.Warn("blacklist cache lookup failed", zap.Error(err))
		} else if hit {
			return true, nil
		}
	}
	return b.store.IsBlacklisted(ctx, token)
}

// Add revokes token until exp.  Revoking an already revoked token is a
// no-op.
func (b *Blacklist) Add(ctx context.Context, token string, exp time.Time) error {
	if err := b.store.Add(ctx, token, exp); err != nil {
		return err
	}
	if b.cache != nil {
		if err := b.cache.MarkRevoked(ctx, token, exp); err != nil {
			b.log.Warn("blacklist cache write failed", zap.Error(err))
		}
	}
	return nil
}

// PurgeExpired drops entries whose token has expired.
func (b *Blacklist) PurgeExpired(ctx context.Context) (int64, error) {
	return b.store.PurgeExpired(ctx, time.Now().UTC())
}

// Credentials issues and verifies access tokens.
type Credentials struct {
	secret    string
	ttl       time.Duration
	blacklist *Blacklist
}

func NewCredentials(secret string, ttl time.Duration, blacklist *Blacklist) *Credentials {
	return &Credentials{secret: secret, ttl: ttl, blacklist: blacklist}
}

// Issue mints a token whose subject is email.
func (c *Credentials) Issue(email string) (utils.AccessToken, error) {
	return utils.NewAccessToken(c.secret, email, c.ttl)
}

// Verify checks signature, expiry and the blacklist.  Every failure is
// reported as ErrUnauthorized except a blacklist lookup error, which is
// internal.
func (c *Credentials) Verify(ctx context.Context, raw string) (*utils.Claims, error) {
	claims, err := utils.ParseAccessToken(c.secret, raw)
	if err != nil {
		return nil, newErr(ErrUnauthorized, "Could not validate credentials")
	}
	revoked, err := c.blacklist.IsBlacklisted(ctx, raw)
	if err != nil {
		return nil, internal(err)
	}
	if revoked {
		return nil, newErr(ErrUnauthorized, "Token has been invalidated")
	}
	return claims, nil
}

// Revoke blacklists raw until its own expiry.  Tokens whose expiry cannot
// be read (bad signature, garbage) are blacklisted until now.
func (c *Credentials) Revoke(ctx context.Context, raw string) error {
	exp, err := utils.ParseUnverifiedExpiry(c.secret, raw)
	if err != nil {
		exp = time.Now().UTC()
	}
	return c.blacklist.Add(ctx, raw, exp)
}
