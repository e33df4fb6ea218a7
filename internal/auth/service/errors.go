package service

import "errors"

// Kind classifies a service error for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindConflict
	KindUnauthorized
	KindNotFound
	KindTooManyRequests
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindTooManyRequests:
		return "too_many_requests"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// Error is an expected failure with a stable code and a message safe to show
// to the caller. Sentinels are compared by identity.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

var (
	ErrEmailInUse              = &Error{KindConflict, "email_in_use", "Email already in use"}
	ErrInvalidCredentials      = &Error{KindUnauthorized, "invalid_credentials", "Invalid email or password"}
	ErrMissingRefreshToken     = &Error{KindUnauthorized, "missing_refresh_token", "Missing refresh token"}
	ErrInvalidRefreshToken     = &Error{KindUnauthorized, "invalid_refresh_token", "Invalid refresh token"}
	ErrSessionExpired          = &Error{KindUnauthorized, "session_expired", "Session expired"}
	ErrInvalidAccessToken      = &Error{KindUnauthorized, "invalid_access_token", "Invalid token"}
	ErrAccessTokenExpired      = &Error{KindUnauthorized, "invalid_access_token", "Token expired"}
	ErrInvalidVerificationCode = &Error{KindNotFound, "invalid_verification_code", "Invalid or expired verification code"}
	ErrUserNotFound            = &Error{KindNotFound, "user_not_found", "User not found"}
	ErrSessionNotFound         = &Error{KindNotFound, "session_not_found", "Session not found"}
	ErrTooManyRequests         = &Error{KindTooManyRequests, "too_many_requests", "Too many requests, please try again later"}
)

// KindOf reports the kind of err. Anything that is not a *Error is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf reports the stable code of err, or "internal_error".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}
