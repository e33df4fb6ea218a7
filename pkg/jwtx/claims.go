package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes. Access tokens are short lived, refresh tokens
// live as long as the session they point at.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour

	// DefaultAudience is the audience stamped into both token kinds.
	DefaultAudience = "user"
)

// Claims are the signed contents of both token kinds. Refresh tokens only
// ever carry the session id.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId"`
}

// Payload is the caller-visible part of a token.
type Payload struct {
	UserID    string
	SessionID string
}

// NewClaims builds the registered and custom claims for a token minted at now.
func NewClaims(p Payload, issuer, audience string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    p.UserID,
		SessionID: p.SessionID,
	}
}

// Payload returns the custom claims.
func (c *Claims) Payload() Payload {
	return Payload{UserID: c.UserID, SessionID: c.SessionID}
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateExpiry ensures the token has an expiry and that it is after now.
func (c *Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}
	return nil
}
