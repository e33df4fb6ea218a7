package authsdk

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// SDKClient is a client for the authd service. Session tokens travel as
// cookies, so the client keeps a cookie jar and one SDKClient represents one
// signed-in browser.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// UserAgent is sent with every request; the service records it on
	// sessions created by Register and Login.
	UserAgent string
}

// NewSDKClient creates a client with an empty cookie jar.
func NewSDKClient(baseURL string) *SDKClient {
	jar, _ := cookiejar.New(nil) // only fails on a non-nil options value
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
}

// Register creates an account and signs the client in.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	var user User
	if err := c.call(ctx, http.MethodPost, "/v1/auth/register", req, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login signs the client in.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*User, error) {
	var user User
	req := LoginRequest{Email: email, Password: password}
	if err := c.call(ctx, http.MethodPost, "/v1/auth/login", req, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// Refresh replaces the access token cookie, and the refresh token cookie
// when the service rotates it. On any failure the service clears both.
func (c *SDKClient) Refresh(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/v1/auth/refresh", nil, nil, http.StatusOK)
}

// Logout ends the current session and clears the cookies.
func (c *SDKClient) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/v1/auth/logout", nil, nil, http.StatusOK)
}

// VerifyEmail redeems a verification code from the mailed link.
func (c *SDKClient) VerifyEmail(ctx context.Context, code string) (*User, error) {
	var user User
	if err := c.call(ctx, http.MethodGet, "/v1/auth/email/verify/"+url.PathEscape(code), nil, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// ForgotPassword requests a reset link. It succeeds whether or not the
// email belongs to an account.
func (c *SDKClient) ForgotPassword(ctx context.Context, email string) error {
	req := ForgotPasswordRequest{Email: email}
	return c.call(ctx, http.MethodPost, "/v1/auth/password/forgot", req, nil, http.StatusOK)
}

// ResetPassword sets a new password using a reset code. Every session of
// the account is ended, including this client's.
func (c *SDKClient) ResetPassword(ctx context.Context, code, password string) (*User, error) {
	var user User
	req := ResetPasswordRequest{Password: password, VerificationCode: code}
	if err := c.call(ctx, http.MethodPost, "/v1/auth/password/reset", req, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me returns the signed-in user.
func (c *SDKClient) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.call(ctx, http.MethodGet, "/v1/user", nil, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// Sessions lists the live sessions of the signed-in user, newest first.
func (c *SDKClient) Sessions(ctx context.Context) ([]Session, error) {
	var sessions []Session
	if err := c.call(ctx, http.MethodGet, "/v1/sessions", nil, &sessions, http.StatusOK); err != nil {
		return nil, err
	}
	return sessions, nil
}

// RevokeSession ends one of the signed-in user's sessions.
func (c *SDKClient) RevokeSession(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(id), nil, nil, http.StatusOK)
}
