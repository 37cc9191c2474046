package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TokenRepo persists revoked access tokens in the token_blacklist table.
type TokenRepo struct{ DB *sqlx.DB }

func NewTokenRepo(db *sqlx.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Add blacklists token until exp.  Adding a token that is already present
// leaves the existing row untouched.
func (r *TokenRepo) Add(ctx context.Context, token string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO token_blacklist (id, token, blacklisted_at, expires_at) VALUES (?,?,?,?) "+
			"ON DUPLICATE KEY UPDATE token=token",
		uuid.New(), token, time.Now().UTC(), exp.UTC())
	return err
}

// IsBlacklisted reports whether token has a blacklist row.
func (r *TokenRepo) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	var found bool
	err := r.DB.GetContext(ctx, &found,
		"SELECT EXISTS(SELECT 1 FROM token_blacklist WHERE token=?)", token)
	return found, err
}

// PurgeExpired deletes rows whose token expired before now and returns how
// many were removed.
func (r *TokenRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM token_blacklist WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
