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
	"github.com/aussiebroadwan/authd/pkg/slogx"
	"github.com/samber/oops"
)

type ResetPasswordInput struct {
	Password string
	Code     string
}

// VerifyEmail redeems an email verification code and marks its user
// verified.
func (s *AuthService) VerifyEmail(ctx context.Context, code string) (user domain.PublicUser, err error) {
	ctx, finish := begin(ctx, "verify_email")
	defer finish(&err)

	vc, err := s.redeem(ctx, code, domain.PurposeEmailVerification)
	if err != nil {
		return domain.PublicUser{}, err
	}

	verified := true
	u, err := s.Users.UpdateUser(ctx, vc.UserID, domain.UserUpdate{Verified: &verified}, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return domain.PublicUser{}, ErrUserNotFound
	}
	if err != nil {
		return domain.PublicUser{}, oops.Code("AUTH_VERIFY_EMAIL_FAILED").With("operation", "update user").Wrap(err)
	}

	slogx.FromContext(ctx).InfoContext(ctx, "email verified", "user_id", u.ID)
	return u.Public(), nil
}

// ResetPassword redeems a password reset code, replaces the password and
// ends every session of the user.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) (user domain.PublicUser, err error) {
	ctx, finish := begin(ctx, "reset_password")
	defer finish(&err)

	l := slogx.FromContext(ctx)

	// 1. Claim the code
	vc, err := s.redeem(ctx, in.Code, domain.PurposePasswordReset)
	if err != nil {
		return domain.PublicUser{}, err
	}

	// 2. New password
	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return domain.PublicUser{}, oops.Code("AUTH_RESET_PASSWORD_FAILED").With("operation", "hash password").Wrap(err)
	}
	u, err := s.Users.UpdateUser(ctx, vc.UserID, domain.UserUpdate{PasswordHash: &hash}, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return domain.PublicUser{}, ErrUserNotFound
	}
	if err != nil {
		return domain.PublicUser{}, oops.Code("AUTH_RESET_PASSWORD_FAILED").With("operation", "update user").Wrap(err)
	}

	// 3. Sign out everywhere
	n, err := s.Sessions.DeleteSessionsByUser(ctx, u.ID)
	if err != nil {
		return domain.PublicUser{}, oops.Code("AUTH_RESET_PASSWORD_FAILED").With("operation", "delete sessions").Wrap(err)
	}

	l.InfoContext(ctx, "password reset", "user_id", u.ID, "sessions_ended", n)
	return u.Public(), nil
}

// redeem finds a live code of purpose and deletes it. Deletion is the claim:
// of two concurrent redeemers only the one whose delete lands proceeds.
func (s *AuthService) redeem(ctx context.Context, id string, purpose domain.CodePurpose) (domain.VerificationCode, error) {
	if id == "" {
		return domain.VerificationCode{}, ErrInvalidVerificationCode
	}

	vc, err := s.Codes.FindCode(ctx, store.CodeFilter{ID: id, Purpose: purpose, ValidAt: s.now()})
	if errors.Is(err, store.ErrNotFound) {
		return domain.VerificationCode{}, ErrInvalidVerificationCode
	}
	if err != nil {
		return domain.VerificationCode{}, oops.Code("AUTH_CODE_FAILED").With("operation", "find code").With("purpose", string(purpose)).Wrap(err)
	}

	err = s.Codes.DeleteCode(ctx, vc.ID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.VerificationCode{}, ErrInvalidVerificationCode
	}
	if err != nil {
		return domain.VerificationCode{}, oops.Code("AUTH_CODE_FAILED").With("operation", "delete code").With("purpose", string(purpose)).Wrap(err)
	}
	return vc, nil
}

// ForgotPassword mails a password reset link when email belongs to an
// account. It reports nothing back: every failure, including an unknown
// email or too many recent requests, is logged and counted only.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) {
	var err error
	ctx, finish := begin(ctx, "forgot_password")
	defer finish(&err)

	if err = s.sendPasswordReset(ctx, domain.NormalizeEmail(email)); err != nil {
		code := CodeOf(err)
		metrics.RecordSuppressed("forgot_password", code)
		slogx.FromContext(ctx).WarnContext(ctx, "password reset not sent", "code", code, "error", err)
	}
}

func (s *AuthService) sendPasswordReset(ctx context.Context, email string) error {
	now := s.now()

	// 1. User
	user, err := s.Users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return oops.Code("AUTH_FORGOT_PASSWORD_FAILED").With("operation", "get user").Wrap(err)
	}

	// 2. Throttle
	recent, err := s.Codes.CountCodes(ctx, store.CodeCountFilter{
		UserID:       user.ID,
		Purpose:      domain.PurposePasswordReset,
		CreatedAfter: now.Add(-PasswordResetWindow),
	})
	if err != nil {
		return oops.Code("AUTH_FORGOT_PASSWORD_FAILED").With("operation", "count codes").Wrap(err)
	}
	if recent > MaxRecentPasswordResets {
		return ErrTooManyRequests
	}

	// 3. Code
	codeID, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return oops.Code("AUTH_FORGOT_PASSWORD_FAILED").With("operation", "generate code").Wrap(err)
	}
	code := domain.VerificationCode{
		ID:        codeID,
		UserID:    user.ID,
		Purpose:   domain.PurposePasswordReset,
		ExpiresAt: now.Add(PasswordResetTTL),
		CreatedAt: now,
	}
	if err := s.Codes.CreateCode(ctx, code); err != nil {
		return oops.Code("AUTH_FORGOT_PASSWORD_FAILED").With("operation", "create code").Wrap(err)
	}

	// 4. Mail, which must be accepted
	url := fmt.Sprintf("%s/password/reset?code=%s&exp=%d", s.AppOrigin, code.ID, code.ExpiresAt.UnixMilli())
	if err := s.send(ctx, user.Email, url, mail.PasswordResetMessage); err != nil {
		metrics.RecordMailFailure("password_reset")
		return oops.Code("AUTH_FORGOT_PASSWORD_FAILED").With("operation", "send mail").With("user_id", user.ID).Wrap(err)
	}
	return nil
}
