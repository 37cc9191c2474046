package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/utils"
)

// Token is the body returned by login and refresh.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func bearer(t utils.AccessToken) *Token {
	return &Token{AccessToken: t.Token, TokenType: "bearer", ExpiresAt: t.Exp}
}

// AuthService implements login, logout, refresh, registration and password
// changes on top of Credentials and the user store.
type AuthService struct {
	users      UserStore
	creds      *Credentials
	blacklist  *Blacklist
	bcryptCost int
	log        *zap.Logger
}

func NewAuthService(users UserStore, creds *Credentials, blacklist *Blacklist, bcryptCost int, log *zap.Logger) *AuthService {
	return &AuthService{users: users, creds: creds, blacklist: blacklist, bcryptCost: bcryptCost, log: log}
}

var errBadLogin = &Error{Kind: ErrUnauthorized, Message: "Incorrect email or password"}

// Login exchanges an email and password for an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Token, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errBadLogin
	}
	if err != nil {
		return nil, internal(err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, errBadLogin
	}
	if !u.IsActive {
		return nil, newErr(ErrUnauthorized, "Inactive user")
	}
	t, err := s.creds.Issue(u.Email)
	if err != nil {
		return nil, internal(err)
	}
	return bearer(t), nil
}

// Authenticate resolves a bearer token to its active user.  It is what
// protected routes run on every request.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*model.User, error) {
	claims, err := s.creds.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newErr(ErrUnauthorized, "Could not validate credentials")
	}
	if err != nil {
		return nil, internal(err)
	}
	if !u.IsActive {
		return nil, newErr(ErrUnauthorized, "Inactive user")
	}
	return u, nil
}

// Logout revokes raw and purges expired blacklist entries.  It never
// fails; problems are logged.
func (s *AuthService) Logout(ctx context.Context, raw string) {
	if err := s.creds.Revoke(ctx, raw); err != nil {
		s.log.Error("logout: blacklist token", zap.Error(err))
	}
	n, err := s.blacklist.PurgeExpired(ctx)
	if err != nil {
		s.log.Error("logout: purge blacklist", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Debug("logout: purged expired blacklist entries", zap.Int64("count", n))
	}
}

// Refresh swaps a valid token for a new one and revokes the old token.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*Token, error) {
	claims, err := s.creds.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, claims.Subject)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, internal(err)
	}
	if u == nil || !u.IsActive {
		return nil, newErr(ErrUnauthorized, "User not found or inactive")
	}
	t, err := s.creds.Issue(u.Email)
	if err != nil {
		return nil, internal(err)
	}
	if err := s.blacklist.Add(ctx, raw, claims.ExpiresAt.Time); err != nil {
		return nil, internal(err)
	}
	return bearer(t), nil
}

// Register creates an active USER account.  Email and password must
// already have passed request validation.
func (s *AuthService) Register(ctx context.Context, email, password string) (*model.User, error) {
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, internal(err)
	}
	u := &model.User{Email: email, PasswordHash: hash, Role: model.RoleUser, IsActive: true}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, internal(err)
	}
	s.log.Info("user registered", zap.String("user_id", u.ID.String()))
	return u, nil
}

// ChangePassword replaces the password of u after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, u *model.User, current, next string) error {
	fresh, err := s.users.GetByID(ctx, u.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return newErr(ErrNotFound, "User not found")
	}
	if err != nil {
		return internal(err)
	}
	if !utils.VerifyPassword(fresh.PasswordHash, current) {
		return newErr(ErrUnauthorized, "Current password is incorrect")
	}
	hash, err := utils.HashPassword(next, s.bcryptCost)
	if err != nil {
		return internal(err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return internal(err)
	}
	return nil
}
