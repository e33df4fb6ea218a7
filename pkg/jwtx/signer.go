package jwtx

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Sign mints an HS256 token of the given kind. Output is deterministic for a
// given payload and instant. Refresh tokens never carry a user id.
func (c *Codec) Sign(kind Kind, p Payload) (string, error) {
	k, err := c.key(kind)
	if err != nil {
		return "", err
	}
	if kind == KindRefresh {
		p.UserID = ""
	}

	claims := NewClaims(p, c.issuer, k.Audience, k.TTL, c.clock.Now())
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(k.Secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign %s token: %w", kind, err)
	}
	return signed, nil
}
