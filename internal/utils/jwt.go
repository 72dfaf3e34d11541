package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA-256 digests of tokens for the revocation ledger
	"encoding/hex"  // hex encoding of digests
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"
)

// SessionClaims are the claims carried by every session token.  Subject is
// the user id ("admin" for the configured administrator).  ID (jti) is a
// random UUID so tokens issued within the same second still differ.
type SessionClaims struct {
	IsAdmin bool `json:"is_admin"`
	jwt.RegisteredClaims
}

// SessionToken represents a signed JWT along with its expiry.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewSessionToken builds and signs an HS256 JWT.  now is passed in so the
// token service can be driven by a fixed clock in tests.
func NewSessionToken(secret, subject string, isAdmin bool, ttl time.Duration, now time.Time) (SessionToken, error) {
	if secret == "" {
		return SessionToken{}, errors.New("jwt secret is empty")
	}
	now = now.UTC()
	exp := now.Add(ttl)
	claims := SessionClaims{
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies the signature (HMAC only) and expiry of raw
// against now and returns its claims.
func ParseSessionToken(secret, raw string, now time.Time) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// Reject anything that is not HMAC, including "none".
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, err
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// TokenExpiry reads the exp claim without verifying anything.  It is used
// when revoking a presented token, which must work even if the token is
// malformed or already expired.
func TokenExpiry(raw string) (time.Time, bool) {
	claims := &SessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// HashToken returns the SHA-256 hex digest of a raw token.  The ledger only
// ever stores this digest.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
