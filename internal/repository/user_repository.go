package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/storefront-api/internal/model"
)

const userColumns = "id, email, password_hash, role, is_active, created_at, updated_at"

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts u.  A zero ID is replaced by a fresh UUID and the
// timestamps are set to now.  A taken email yields ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = strings.TrimSpace(u.Email)
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?)",
		u.ID, u.Email, u.PasswordHash, u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// GetByEmail fetches a user by exact email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.DB.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", strings.TrimSpace(email))
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	err := r.DB.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// List returns users ordered by creation time.
func (r *UserRepo) List(ctx context.Context, skip, limit int) ([]model.User, error) {
	users := []model.User{}
	err := r.DB.SelectContext(ctx, &users,
		"SELECT "+userColumns+" FROM users ORDER BY created_at, id LIMIT ? OFFSET ?", limit, skip)
	return users, err
}

// Update writes every mutable column of u.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET email=?, password_hash=?, role=?, is_active=?, updated_at=? WHERE id=?",
		strings.TrimSpace(u.Email), u.PasswordHash, u.Role, u.IsActive, u.UpdatedAt, u.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the stored hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=? WHERE id=?", hash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the user.  Orders keep their rows with user_id set to NULL.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
