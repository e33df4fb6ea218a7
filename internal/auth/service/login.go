package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/authd/internal/auth/domain"
	"github.com/aussiebroadwan/authd/internal/auth/store"
	"github.com/aussiebroadwan/authd/pkg/slogx"
	"github.com/samber/oops"
)

type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
}

// Login checks credentials and opens a new session. Existing sessions are
// left alone. Unknown emails and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (res AuthResult, err error) {
	ctx, finish := begin(ctx, "login")
	defer finish(&err)

	now := s.now()
	l := slogx.FromContext(ctx)

	user, err := s.Users.GetUserByEmail(ctx, domain.NormalizeEmail(in.Email))
	if errors.Is(err, store.ErrNotFound) {
		s.burnVerify(in.Password)
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, oops.Code("AUTH_LOGIN_FAILED").With("operation", "get user").Wrap(err)
	}

	ok, err := s.Hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return AuthResult{}, oops.Code("AUTH_LOGIN_FAILED").With("operation", "verify password").With("user_id", user.ID).Wrap(err)
	}
	if !ok {
		l.InfoContext(ctx, "login rejected", "user_id", user.ID)
		return AuthResult{}, ErrInvalidCredentials
	}

	tokens, err := s.issueSession(ctx, user.ID, in.UserAgent, now)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user.Public(), Tokens: tokens}, nil
}

// burnVerify spends the same work as a real password check so an unknown
// email cannot be told apart by timing.
func (s *AuthService) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash("not-a-real-password")
	})
	if s.dummyHash != "" {
		_, _ = s.Hasher.Verify(password, s.dummyHash)
	}
}
