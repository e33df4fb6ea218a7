package domain

import "time"

// CodePurpose scopes what a verification code may be redeemed for.
type CodePurpose string

const (
	PurposeEmailVerification CodePurpose = "email_verification"
	PurposePasswordReset     CodePurpose = "password_reset"
)

// Valid reports whether p is a known purpose.
func (p CodePurpose) Valid() bool {
	return p == PurposeEmailVerification || p == PurposePasswordReset
}

// VerificationCode is a single-use, expiring secret mailed to a user. The ID
// is the secret itself.
type VerificationCode struct {
	ID        string
	UserID    string
	Purpose   CodePurpose
	ExpiresAt time.Time
	CreatedAt time.Time
}
