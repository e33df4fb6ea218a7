package app

import (
	"log/slog"

	"github.com/aussiebroadwan/authd/pkg/clockx"
	"github.com/aussiebroadwan/authd/pkg/cryptox"
	"github.com/aussiebroadwan/authd/pkg/jwtx"
	"github.com/samber/oops"
)

// InitTokenCodec builds the access/refresh codec from the configured HMAC
// secrets.
//
// Secret modes:
//   - configured: both secrets come from config and tokens survive restarts.
//   - ephemeral: in dev, missing secrets are generated on startup and kept
//     only in memory. All existing tokens become invalid on restart.
func InitTokenCodec(cfg Config, clock clockx.Clock, logger *slog.Logger) (*jwtx.Codec, error) {
	access, refresh := cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret

	if access == "" || refresh == "" {
		var err error
		if access == "" {
			if access, err = cryptox.GenerateToken(cryptox.TokenSize256); err != nil {
				return nil, oops.Code("KEYGEN_FAILED").Wrap(err)
			}
		}
		if refresh == "" {
			if refresh, err = cryptox.GenerateToken(cryptox.TokenSize256); err != nil {
				return nil, oops.Code("KEYGEN_FAILED").Wrap(err)
			}
		}
		logger.Warn("generated ephemeral token secrets, all existing tokens are now invalid")
	}

	codec, err := jwtx.NewCodec(jwtx.Config{
		Issuer:  cfg.JWT.Issuer,
		Access:  jwtx.KeyConfig{Secret: []byte(access), TTL: cfg.JWT.AccessTTL},
		Refresh: jwtx.KeyConfig{Secret: []byte(refresh), TTL: cfg.JWT.RefreshTTL},
		Clock:   clock,
	})
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "build token codec").Wrap(err)
	}

	logger.Info("token codec ready",
		"issuer", cfg.JWT.Issuer,
		"access_ttl", codec.TTL(jwtx.KindAccess),
		"refresh_ttl", codec.TTL(jwtx.KindRefresh),
	)
	return codec, nil
}
