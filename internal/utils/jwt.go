package utils // package utils provides helpers for token creation and password hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNoExpiry is returned when a token carries no exp claim.
var ErrNoExpiry = errors.New("token has no expiry")

// Claims is the payload of an access token.  Subject holds the user's
// email; ID is a random jti so two tokens minted in the same second for
// the same user still differ.
type Claims struct {
	jwt.RegisteredClaims
}

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field is what clients send in the Authorization header.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for the given email.  The
// token expires ttl after issuance.
func NewAccessToken(secret, email string, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   email,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	// exp is truncated to whole seconds inside the token; report the same value.
	return AccessToken{Token: signed, Exp: claims.ExpiresAt.Time.UTC()}, nil
}

// ParseAccessToken verifies the signature, the algorithm and the expiry
// of raw and returns its claims.
func ParseAccessToken(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, keyFunc(secret),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidSubject
	}
	return claims, nil
}

// ParseUnverifiedExpiry returns the exp claim of raw.  The signature is
// still checked but an expired token is accepted, which is what logout
// needs when it revokes whatever the client presents.
func ParseUnverifiedExpiry(secret, raw string) (time.Time, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, keyFunc(secret),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time.UTC(), nil
}

func keyFunc(secret string) jwt.Keyfunc {
	return func(*jwt.Token) (any, error) { return []byte(secret), nil }
}

// HashToken returns the hex SHA-256 of a raw token.  It is used wherever a
// fixed-size key is needed for a token, such as cache keys.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
