package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/authd/internal/auth/domain"
	"github.com/aussiebroadwan/authd/internal/auth/mail"
	"github.com/aussiebroadwan/authd/internal/auth/metrics"
	"github.com/aussiebroadwan/authd/internal/auth/store"
	"github.com/aussiebroadwan/authd/pkg/cryptox"
	"github.com/aussiebroadwan/authd/pkg/idx"
	"github.com/aussiebroadwan/authd/pkg/slogx"
	"github.com/samber/oops"
)

type RegisterInput struct {
	Email     string
	Password  string
	UserAgent string
}

// Register creates an unverified account, mails a verification link and
// opens the first session. Effects are not rolled back when a later step
// fails.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (res AuthResult, err error) {
	ctx, finish := begin(ctx, "register")
	defer finish(&err)

	now := s.now()
	email := domain.NormalizeEmail(in.Email)
	l := slogx.FromContext(ctx)

	// 1. Reject taken emails
	exists, err := s.Users.UserExistsByEmail(ctx, email)
	if err != nil {
		return AuthResult{}, oops.Code("AUTH_REGISTER_FAILED").With("operation", "check email").Wrap(err)
	}
	if exists {
		return AuthResult{}, ErrEmailInUse
	}

	// 2. Create the user
	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return AuthResult{}, oops.Code("AUTH_REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}
	user := domain.User{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, store.ErrAlreadyExists) {
			return AuthResult{}, ErrEmailInUse
		}
		return AuthResult{}, oops.Code("AUTH_REGISTER_FAILED").With("operation", "create user").Wrap(err)
	}

	// 3. Verification code
	codeID, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return AuthResult{}, oops.Code("AUTH_REGISTER_FAILED").With("operation", "generate code").Wrap(err)
	}
	code := domain.VerificationCode{
		ID:        codeID,
		UserID:    user.ID,
		Purpose:   domain.PurposeEmailVerification,
		ExpiresAt: now.Add(VerifyEmailTTL),
		CreatedAt: now,
	}
	if err := s.Codes.CreateCode(ctx, code); err != nil {
		return AuthResult{}, oops.Code("AUTH_REGISTER_FAILED").With("operation", "create verification code").Wrap(err)
	}

	// 4. Mail is best effort
	url := fmt.Sprintf("%s/email/verify/%s", s.AppOrigin, code.ID)
	if err := s.send(ctx, user.Email, url, mail.VerificationMessage); err != nil {
		metrics.RecordMailFailure("email_verification")
		l.ErrorContext(ctx, "verification mail failed", "user_id", user.ID, "error", err)
	}

	// 5. Session and tokens
	tokens, err := s.issueSession(ctx, user.ID, in.UserAgent, now)
	if err != nil {
		return AuthResult{}, err
	}

	l.InfoContext(ctx, "user registered", "user_id", user.ID)
	return AuthResult{User: user.Public(), Tokens: tokens}, nil
}

// send renders and delivers a link mail, requiring a receipt.
func (s *AuthService) send(ctx context.Context, to, url string, build func(to, url string) (mail.Message, error)) error {
	msg, err := build(to, url)
	if err != nil {
		return err
	}
	receipt, err := s.Mailer.Send(ctx, msg)
	if err != nil {
		return err
	}
	if receipt.ID == "" {
		return mail.ErrNoReceipt
	}
	return nil
}
