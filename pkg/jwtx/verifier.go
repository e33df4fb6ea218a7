package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// Verify checks the token against the key material of kind and returns its
// payload. Expired tokens yield ErrExpired. Every other failure, including an
// empty token, wraps ErrMalformed.
func (c *Codec) Verify(kind Kind, tokenStr string) (Payload, error) {
	k, err := c.key(kind)
	if err != nil {
		return Payload{}, err
	}
	if tokenStr == "" {
		return Payload{}, ErrMalformed
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.clock.Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return k.Secret, nil
	})
	if err != nil {
		return Payload{}, classify(err)
	}
	if !token.Valid {
		return Payload{}, ErrMalformed
	}

	// The parser has done the time checks; the rest are ours.
	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := claims.ValidateAudience([]string{k.Audience}); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if claims.SessionID == "" {
		return Payload{}, fmt.Errorf("%w: missing sessionId", ErrMalformed)
	}
	if kind == KindAccess && claims.UserID == "" {
		return Payload{}, fmt.Errorf("%w: missing userId", ErrMalformed)
	}

	p := claims.Payload()
	if kind == KindRefresh {
		p.UserID = ""
	}
	return p, nil
}

// classify maps jwt library failures onto the package sentinels.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrMalformed, ErrInvalidSig)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrMalformed, ErrAlgMismatch)
	default:
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}
