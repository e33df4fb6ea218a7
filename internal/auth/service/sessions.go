package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/authd/internal/auth/domain"
	"github.com/aussiebroadwan/authd/internal/auth/store"
	"github.com/aussiebroadwan/authd/pkg/jwtx"
	"github.com/samber/oops"
)

// Authenticate checks an access token. It does not consult the session
// store.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (domain.Principal, error) {
	p, err := s.Codec.Verify(jwtx.KindAccess, accessToken)
	if errors.Is(err, jwtx.ErrExpired) {
		return domain.Principal{}, ErrAccessTokenExpired
	}
	if err != nil {
		return domain.Principal{}, ErrInvalidAccessToken
	}
	return domain.Principal{UserID: p.UserID, SessionID: p.SessionID}, nil
}

func (s *AuthService) GetUser(ctx context.Context, userID string) (user domain.PublicUser, err error) {
	ctx, finish := begin(ctx, "get_user")
	defer finish(&err)

	u, err := s.Users.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.PublicUser{}, ErrUserNotFound
	}
	if err != nil {
		return domain.PublicUser{}, oops.Code("AUTH_GET_USER_FAILED").Wrap(err)
	}
	return u.Public(), nil
}

// ListSessions returns the live sessions of userID, newest first, flagging
// currentSessionID.
func (s *AuthService) ListSessions(ctx context.Context, userID, currentSessionID string) (views []domain.SessionView, err error) {
	ctx, finish := begin(ctx, "list_sessions")
	defer finish(&err)

	sessions, err := s.Sessions.ListSessions(ctx, store.SessionFilter{UserID: userID, ActiveAt: s.now()})
	if err != nil {
		return nil, oops.Code("AUTH_LIST_SESSIONS_FAILED").Wrap(err)
	}

	views = make([]domain.SessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, domain.SessionView{
			ID:        sess.ID,
			UserAgent: sess.UserAgent,
			CreatedAt: sess.CreatedAt,
			ExpiresAt: sess.ExpiresAt,
			IsCurrent: sess.ID == currentSessionID,
		})
	}
	return views, nil
}

// RevokeSession deletes one of userID's sessions. Sessions of other users
// look the same as missing ones.
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string) (err error) {
	ctx, finish := begin(ctx, "revoke_session")
	defer finish(&err)

	err = s.Sessions.DeleteUserSession(ctx, userID, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return oops.Code("AUTH_REVOKE_SESSION_FAILED").Wrap(err)
	}
	return nil
}
