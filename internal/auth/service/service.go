// Package service implements the credential and session lifecycle: account
// creation, login, token rotation, logout and the mail-driven recovery flows.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/authd/internal/auth/domain"
	"github.com/aussiebroadwan/authd/internal/auth/mail"
	"github.com/aussiebroadwan/authd/internal/auth/metrics"
	"github.com/aussiebroadwan/authd/internal/auth/store"
	"github.com/aussiebroadwan/authd/pkg/clockx"
	"github.com/aussiebroadwan/authd/pkg/idx"
	"github.com/aussiebroadwan/authd/pkg/jwtx"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	SessionTTL       = 30 * clockx.Day
	RefreshThreshold = clockx.Day
	VerifyEmailTTL   = clockx.Year
	PasswordResetTTL = time.Hour

	// A third reset request inside the window is refused.
	PasswordResetWindow     = 5 * time.Minute
	MaxRecentPasswordResets = 1
)

var tracer = otel.Tracer("authd/service")

// PasswordHasher produces and checks password digests.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// TokenCodec mints and verifies signed tokens.
type TokenCodec interface {
	Sign(kind jwtx.Kind, p jwtx.Payload) (string, error)
	Verify(kind jwtx.Kind, token string) (jwtx.Payload, error)
}

// AuthService is the auth engine. All fields are required except Clock,
// which defaults to the system clock.
type AuthService struct {
	Users     store.Users
	Sessions  store.Sessions
	Codes     store.VerificationCodes
	Hasher    PasswordHasher
	Codec     TokenCodec
	Mailer    mail.Mailer
	Clock     clockx.Clock
	AppOrigin string

	dummyOnce sync.Once
	dummyHash string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User   domain.PublicUser
	Tokens domain.TokenPair
}

func (s *AuthService) now() time.Time {
	if s.Clock == nil {
		return clockx.System{}.Now()
	}
	return s.Clock.Now()
}

// begin opens a span for operation and returns the matching finisher, which
// records the outcome on the span and in metrics.
func begin(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "auth."+operation, trace.WithAttributes(attrs...))

	return ctx, func(errp *error) {
		outcome := metrics.OutcomeSuccess
		if err := *errp; err != nil {
			outcome = CodeOf(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.RecordOperation(operation, outcome, time.Since(start))
		span.End()
	}
}

// issueSession creates a session for userID and mints its token pair.
func (s *AuthService) issueSession(ctx context.Context, userID, userAgent string, now time.Time) (domain.TokenPair, error) {
	sess := domain.Session{
		ID:        idx.NewAt(now).String(),
		UserID:    userID,
		UserAgent: userAgent,
		ExpiresAt: now.Add(SessionTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Sessions.CreateSession(ctx, sess); err != nil {
		return domain.TokenPair{}, oops.Code("AUTH_SESSION_FAILED").With("operation", "create session").Wrap(err)
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("session.id", sess.ID))

	access, err := s.Codec.Sign(jwtx.KindAccess, jwtx.Payload{UserID: userID, SessionID: sess.ID})
	if err != nil {
		return domain.TokenPair{}, oops.Code("AUTH_SESSION_FAILED").With("operation", "sign access token").Wrap(err)
	}
	refresh, err := s.Codec.Sign(jwtx.KindRefresh, jwtx.Payload{SessionID: sess.ID})
	if err != nil {
		return domain.TokenPair{}, oops.Code("AUTH_SESSION_FAILED").With("operation", "sign refresh token").Wrap(err)
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
