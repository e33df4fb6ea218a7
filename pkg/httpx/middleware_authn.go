package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/authd/pkg/slogx"
)

// AuthenticateFunc resolves an access token to its user and session.
type AuthenticateFunc func(ctx context.Context, token string) (userID, sessionID string, err error)

// ErrorWriter renders a failed request.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// AccessToken reads the access token from a Bearer Authorization header,
// falling back to the named cookie.
func AccessToken(r *http.Request, cookieName string) string {
	if authz := r.Header.Get("Authorization"); authz != "" {
		if token, ok := strings.CutPrefix(authz, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// AuthnMiddleware rejects requests without a valid access token and injects
// the identity for downstream handlers.
func AuthnMiddleware(cookieName string, authenticate AuthenticateFunc, fail ErrorWriter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID, sessionID, err := authenticate(ctx, AccessToken(r, cookieName))
			if err != nil {
				slogx.FromContext(ctx).DebugContext(ctx, "authentication failed", "error", err)
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				fail(w, r, err)
				return
			}

			ctx = WithIdentity(ctx, userID, sessionID)
			ctx = slogx.With(ctx, "user_id", userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
