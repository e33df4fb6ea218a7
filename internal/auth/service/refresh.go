package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/authd/internal/auth/domain"
	"github.com/aussiebroadwan/authd/internal/auth/metrics"
	"github.com/aussiebroadwan/authd/internal/auth/store"
	"github.com/aussiebroadwan/authd/pkg/cryptox"
	"github.com/aussiebroadwan/authd/pkg/jwtx"
	"github.com/aussiebroadwan/authd/pkg/slogx"
	"github.com/samber/oops"
)

// Refresh mints a new access token for the session behind refreshToken. When
// the session is within RefreshThreshold of expiring it is extended and a new
// refresh token is returned too; otherwise RefreshToken is empty.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (pair domain.TokenPair, err error) {
	ctx, finish := begin(ctx, "refresh")
	defer finish(&err)

	if refreshToken == "" {
		return domain.TokenPair{}, ErrMissingRefreshToken
	}

	now := s.now()
	l := slogx.FromContext(ctx)

	// 1. Token
	p, err := s.Codec.Verify(jwtx.KindRefresh, refreshToken)
	if err != nil {
		l.DebugContext(ctx, "refresh token rejected", "fp", cryptox.LogFingerprint(refreshToken), "error", err)
		return domain.TokenPair{}, ErrInvalidRefreshToken
	}

	// 2. Session
	sess, err := s.activeSession(ctx, p.SessionID, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	// 3. Rotate near expiry. Only the caller that wins the swap gets a new
	// refresh token; the others keep theirs.
	if sess.ExpiresAt.Sub(now) <= RefreshThreshold {
		ok, err := s.Sessions.ExtendSession(ctx, sess.ID, sess.ExpiresAt, now.Add(SessionTTL), now)
		if err != nil {
			return domain.TokenPair{}, oops.Code("AUTH_REFRESH_FAILED").With("operation", "extend session").Wrap(err)
		}
		if ok {
			pair.RefreshToken, err = s.Codec.Sign(jwtx.KindRefresh, jwtx.Payload{SessionID: sess.ID})
			if err != nil {
				return domain.TokenPair{}, oops.Code("AUTH_REFRESH_FAILED").With("operation", "sign refresh token").Wrap(err)
			}
		} else {
			metrics.RecordRefreshRace()
			if _, err := s.activeSession(ctx, sess.ID, now); err != nil {
				return domain.TokenPair{}, err
			}
		}
	}

	// 4. Access token
	pair.AccessToken, err = s.Codec.Sign(jwtx.KindAccess, jwtx.Payload{UserID: sess.UserID, SessionID: sess.ID})
	if err != nil {
		return domain.TokenPair{}, oops.Code("AUTH_REFRESH_FAILED").With("operation", "sign access token").Wrap(err)
	}
	return pair, nil
}

// activeSession loads a live session. An expired row is removed on sight.
func (s *AuthService) activeSession(ctx context.Context, id string, now time.Time) (domain.Session, error) {
	sess, err := s.Sessions.GetSessionByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Session{}, ErrSessionExpired
	}
	if err != nil {
		return domain.Session{}, oops.Code("AUTH_REFRESH_FAILED").With("operation", "get session").Wrap(err)
	}

	if !sess.ActiveAt(now) {
		if err := s.Sessions.DeleteSession(ctx, sess.ID); err != nil {
			slogx.FromContext(ctx).WarnContext(ctx, "failed to delete expired session", "session_id", sess.ID, "error", err)
		}
		return domain.Session{}, ErrSessionExpired
	}
	return sess, nil
}
