package service

import (
	"context"

	"github.com/aussiebroadwan/authd/pkg/jwtx"
	"github.com/aussiebroadwan/authd/pkg/slogx"
)

// Logout ends the session named by accessToken. It never fails: a missing,
// invalid or expired token and a store failure all still log the caller out
// on their side.
func (s *AuthService) Logout(ctx context.Context, accessToken string) {
	var err error
	ctx, finish := begin(ctx, "logout")
	defer finish(&err)

	l := slogx.FromContext(ctx)

	p, verr := s.Codec.Verify(jwtx.KindAccess, accessToken)
	if verr != nil {
		l.DebugContext(ctx, "logout without a valid access token", "error", verr)
		return
	}

	if err = s.Sessions.DeleteSession(ctx, p.SessionID); err != nil {
		l.ErrorContext(ctx, "failed to delete session on logout", "session_id", p.SessionID, "error", err)
	}
}
