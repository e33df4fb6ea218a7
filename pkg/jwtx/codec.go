package jwtx

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/authd/pkg/clockx"
)

// Kind selects the key material used to sign or verify a token.
type Kind int

const (
	KindAccess Kind = iota
	KindRefresh
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	ErrUnknownKind = errors.New("jwtx: unknown token kind")
	ErrConfig      = errors.New("jwtx: invalid codec config")
)

// KeyConfig is the per-kind signing material.
type KeyConfig struct {
	Secret   []byte
	TTL      time.Duration // default: DefaultAccessTokenTTL or DefaultRefreshTokenTTL
	Audience string        // default: DefaultAudience
}

// Config configures a Codec. Secrets are required and must differ between
// kinds.
type Config struct {
	Issuer  string
	Access  KeyConfig
	Refresh KeyConfig
	Clock   clockx.Clock // default: clockx.System
}

// Codec signs and verifies the access and refresh token kinds. It is
// immutable after construction and safe for concurrent use.
type Codec struct {
	issuer string
	keys   map[Kind]KeyConfig
	clock  clockx.Clock
}

// NewCodec validates cfg and returns a ready Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Access.Secret) == 0 || len(cfg.Refresh.Secret) == 0 {
		return nil, fmt.Errorf("%w: both access and refresh secrets are required", ErrConfig)
	}
	if bytes.Equal(cfg.Access.Secret, cfg.Refresh.Secret) {
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", ErrConfig)
	}

	access := withDefaults(cfg.Access, DefaultAccessTokenTTL)
	refresh := withDefaults(cfg.Refresh, DefaultRefreshTokenTTL)
	if access.TTL < 0 || refresh.TTL < 0 {
		return nil, fmt.Errorf("%w: negative ttl", ErrConfig)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockx.System{}
	}

	return &Codec{
		issuer: cfg.Issuer,
		keys: map[Kind]KeyConfig{
			KindAccess:  access,
			KindRefresh: refresh,
		},
		clock: clock,
	}, nil
}

// TTL returns the configured lifetime of kind.
func (c *Codec) TTL(kind Kind) time.Duration {
	return c.keys[kind].TTL
}

func (c *Codec) key(kind Kind) (KeyConfig, error) {
	k, ok := c.keys[kind]
	if !ok {
		return KeyConfig{}, ErrUnknownKind
	}
	return k, nil
}

func withDefaults(k KeyConfig, ttl time.Duration) KeyConfig {
	out := KeyConfig{
		Secret:   bytes.Clone(k.Secret),
		TTL:      k.TTL,
		Audience: k.Audience,
	}
	if out.TTL == 0 {
		out.TTL = ttl
	}
	if out.Audience == "" {
		out.Audience = DefaultAudience
	}
	return out
}
