package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of account roles.  It is stored in the
// `users.role` column as its string form.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole converts a client supplied role name into a Role.  Matching is
// case-insensitive; unknown names report false.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(s)) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleUser:
		return RoleUser, true
	}
	return "", false
}

// User represents an account record as stored in the `users` table.
//
// Fields:
//
//	ID           – primary key (UUID).
//	Email        – unique email address, case-sensitive as stored.
//	PasswordHash – bcrypt hash of the password.
//	Role         – ADMIN or USER.
//	IsActive     – inactive accounts cannot log in or refresh tokens.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`                 // users.id
	Email        string    `db:"email" json:"email"`           // users.email
	PasswordHash string    `db:"password_hash" json:"-"`       // users.password_hash
	Role         Role      `db:"role" json:"role"`             // users.role
	IsActive     bool      `db:"is_active" json:"is_active"`   // users.is_active
	CreatedAt    time.Time `db:"created_at" json:"created_at"` // users.created_at
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"` // users.updated_at
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// CanAccess reports whether u may read or modify resources owned by ownerID.
// Admins can access every account; other users only their own.
func (u *User) CanAccess(ownerID uuid.UUID) bool {
	return u.IsAdmin() || u.ID == ownerID
}

// BlacklistedToken models an entry in the `token_blacklist` table.  A row
// marks an access token as revoked until ExpiresAt, after which the token
// would be rejected anyway and the row may be purged.
type BlacklistedToken struct {
	ID            uuid.UUID `db:"id"`             // token_blacklist.id
	Token         string    `db:"token"`          // token_blacklist.token
	BlacklistedAt time.Time `db:"blacklisted_at"` // token_blacklist.blacklisted_at
	ExpiresAt     time.Time `db:"expires_at"`     // token_blacklist.expires_at
}
