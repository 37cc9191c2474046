package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/utils"
)

// UserUpdate is a partial account change; nil fields are left alone.
type UserUpdate struct {
	Email    *string
	Password *string
	IsActive *bool
	Role     *model.Role
}

// AccountService manages user records on behalf of an authenticated caller.
type AccountService struct {
	users      UserStore
	bcryptCost int
	log        *zap.Logger
}

func NewAccountService(users UserStore, bcryptCost int, log *zap.Logger) *AccountService {
	return &AccountService{users: users, bcryptCost: bcryptCost, log: log}
}

var errNotYourAccount = &Error{Kind: ErrForbidden, Message: "Not authorized to access this resource"}

// List returns every account.  Admin only.
func (s *AccountService) List(ctx context.Context, caller *model.User, skip, limit int) ([]model.User, error) {
	if !caller.IsAdmin() {
		return nil, errNotYourAccount
	}
	skip, limit = clampPage(skip, limit)
	users, err := s.users.List(ctx, skip, limit)
	if err != nil {
		return nil, internal(err)
	}
	return users, nil
}

// Get returns the profile of id when caller is that user or an admin.
func (s *AccountService) Get(ctx context.Context, caller *model.User, id uuid.UUID) (*model.User, error) {
	if !caller.CanAccess(id) {
		return nil, errNotYourAccount
	}
	return s.load(ctx, id)
}

func (s *AccountService) load(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newErr(ErrNotFound, "User not found")
	}
	if err != nil {
		return nil, internal(err)
	}
	return u, nil
}

// Update applies a partial change.  Only admins may change role or
// is_active; a password is re-hashed before it is stored.
func (s *AccountService) Update(ctx context.Context, caller *model.User, id uuid.UUID, in UserUpdate) (*model.User, error) {
	if !caller.CanAccess(id) {
		return nil, errNotYourAccount
	}
	if (in.Role != nil || in.IsActive != nil) && !caller.IsAdmin() {
		return nil, newErr(ErrForbidden, "Only administrators can change role or active status")
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Password != nil {
		hash, err := utils.HashPassword(*in.Password, s.bcryptCost)
		if err != nil {
			return nil, internal(err)
		}
		u.PasswordHash = hash
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	if err := s.users.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrNotFound):
			return nil, newErr(ErrNotFound, "User not found")
		}
		return nil, internal(err)
	}
	return u, nil
}

// Delete hard deletes the account.  The user's orders remain with no owner.
func (s *AccountService) Delete(ctx context.Context, caller *model.User, id uuid.UUID) error {
	if !caller.CanAccess(id) {
		return errNotYourAccount
	}
	err := s.users.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return newErr(ErrNotFound, "User not found")
	}
	if err != nil {
		return internal(err)
	}
	s.log.Info("user deleted", zap.String("user_id", id.String()), zap.String("by", caller.ID.String()))
	return nil
}
