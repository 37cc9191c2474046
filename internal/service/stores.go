package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
)

// UserStore is the account persistence used by the auth and account
// services.  *repository.UserRepo implements it.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	List(ctx context.Context, skip, limit int) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// BlacklistStore is the durable record of revoked tokens.
type BlacklistStore interface {
	Add(ctx context.Context, token string, exp time.Time) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// RevocationCache is an optional fast path in front of BlacklistStore.
type RevocationCache interface {
	MarkRevoked(ctx context.Context, token string, exp time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// ProductStore is the catalog persistence outside of order transactions.
type ProductStore interface {
	Create(ctx context.Context, p *model.Product) error
	List(ctx context.Context, skip, limit int) ([]model.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ContactStore is the append-only message store.
type ContactStore interface {
	Create(ctx context.Context, m *model.ContactMessage) error
	List(ctx context.Context, skip, limit int) ([]model.ContactMessage, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.ContactMessage, error)
}

var (
	_ UserStore       = (*repository.UserRepo)(nil)
	_ BlacklistStore  = (*repository.TokenRepo)(nil)
	_ RevocationCache = (*repository.TokenCache)(nil)
	_ ProductStore    = (*repository.ProductRepo)(nil)
	_ ContactStore    = (*repository.ContactRepo)(nil)
)

// Page bounds used by every paginated listing.
const (
	DefaultLimit = 100
	MaxLimit     = 100
)

// clampPage normalizes skip/limit: negative skip becomes 0, a missing or
// oversized limit becomes the default/maximum.
func clampPage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return skip, limit
}
