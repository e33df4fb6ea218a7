package authsdk

import "time"

// Cookie names and paths carrying the session tokens.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"

	AccessTokenPath  = "/"
	RefreshTokenPath = "/v1/auth/refresh"
)

// ============================================================================
// Requests
// ============================================================================

// RegisterRequest is the body of POST /v1/auth/register.
type RegisterRequest struct {
	Email           string `json:"email" jsonschema:"format=email,minLength=1,maxLength=255"`
	Password        string `json:"password" jsonschema:"minLength=6,maxLength=255"`
	ConfirmPassword string `json:"confirmPassword" jsonschema:"minLength=6,maxLength=255"`
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" jsonschema:"format=email,minLength=1,maxLength=255"`
	Password string `json:"password" jsonschema:"minLength=6,maxLength=255"`
}

// ForgotPasswordRequest is the body of POST /v1/auth/password/forgot.
type ForgotPasswordRequest struct {
	Email string `json:"email" jsonschema:"format=email,minLength=1,maxLength=255"`
}

// ResetPasswordRequest is the body of POST /v1/auth/password/reset.
type ResetPasswordRequest struct {
	Password         string `json:"password" jsonschema:"minLength=6,maxLength=255"`
	VerificationCode string `json:"verificationCode" jsonschema:"minLength=1,maxLength=64"`
}

// ============================================================================
// Responses
// ============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is a stable machine-readable code such as "invalid_credentials"
	Error string `json:"error"`

	// ErrorDescription is a human-readable message safe to display
	ErrorDescription string `json:"error_description,omitempty"`
}

// User is an account as returned by the service. It never carries the
// password digest.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Session is one live login as listed back to its owner.
type Session struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsCurrent bool      `json:"isCurrent,omitempty"`
}

// MessageResponse acknowledges operations that return no resource.
type MessageResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response from health check endpoints.
type HealthResponse struct {
	Status  string       `json:"status"`
	Uptime  string       `json:"uptime"`
	Version string       `json:"version"`
	Checks  HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the status of each dependency probed by /readyz.
// Keys name the dependency ("database", "sessions"); values are "ok" or
// "error: ...".
type HealthChecks map[string]string
