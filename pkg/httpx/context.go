package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID    ctxKey = "user_id"
	CtxKeySessionID ctxKey = "session_id"
)

// WithIdentity stores the authenticated user and session on ctx.
func WithIdentity(ctx context.Context, userID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, userID)
	return context.WithValue(ctx, CtxKeySessionID, sessionID)
}

// UserID returns the authenticated user, or "".
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(CtxKeyUserID).(string)
	return v
}

// SessionID returns the session of the authenticated request, or "".
func SessionID(ctx context.Context) string {
	v, _ := ctx.Value(CtxKeySessionID).(string)
	return v
}
