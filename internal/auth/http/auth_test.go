package http_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/aussiebroadwan/authd/pkg/authsdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	c, user := s.signUp(t, "Alice@Example.com", "hunter22")
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.Verified)
	assert.NotEmpty(t, user.ID)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)

	sessions, err := c.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].IsCurrent)
	assert.Equal(t, "authsdk-test/1.0", sessions[0].UserAgent)
}

func TestRegisterSetsCookies(t *testing.T) {
	s := newServer(t)

	resp, body := s.do(t, http.MethodPost, "/v1/auth/register",
		`{"email":"a@example.com","password":"hunter22","confirmPassword":"hunter22"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.NotContains(t, body, "password")

	access := cookieNamed(resp, authsdk.AccessTokenCookie)
	require.NotNil(t, access)
	assert.Equal(t, "/", access.Path)
	assert.True(t, access.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, access.SameSite)
	assert.Equal(t, 15*60, access.MaxAge)

	refresh := cookieNamed(resp, authsdk.RefreshTokenCookie)
	require.NotNil(t, refresh)
	assert.Equal(t, "/v1/auth/refresh", refresh.Path)
	assert.True(t, refresh.HttpOnly)
	assert.Equal(t, 30*24*60*60, refresh.MaxAge)
}

func TestRegisterValidation(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"email":`},
		{"empty body", ``},
		{"bad email", `{"email":"nope","password":"hunter22","confirmPassword":"hunter22"}`},
		{"short password", `{"email":"a@example.com","password":"abc","confirmPassword":"abc"}`},
		{"missing confirmation", `{"email":"a@example.com","password":"hunter22"}`},
		{"mismatched confirmation", `{"email":"a@example.com","password":"hunter22","confirmPassword":"hunter23"}`},
		{"wrong type", `{"email":"a@example.com","password":123456,"confirmPassword":"hunter22"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.do(t, http.MethodPost, "/v1/auth/register", tt.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
			assert.Contains(t, body, `"error":"invalid_request"`)
			assert.Nil(t, cookieNamed(resp, authsdk.AccessTokenCookie))
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newServer(t)
	s.signUp(t, "a@example.com", "hunter22")

	_, err := s.client().Register(context.Background(), authsdk.RegisterRequest{
		Email:           "A@EXAMPLE.COM",
		Password:        "other-password",
		ConfirmPassword: "other-password",
	})
	requireAPIError(t, err, http.StatusConflict, authsdk.ErrorCodeEmailInUse)
}

func TestLogin(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	_, user := s.signUp(t, "a@example.com", "hunter22")

	t.Run("success", func(t *testing.T) {
		c := s.client()
		got, err := c.Login(ctx, "a@example.com", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)

		me, err := c.Me(ctx)
		require.NoError(t, err)
		assert.Equal(t, user.ID, me.ID)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		_, errWrong := s.client().Login(ctx, "a@example.com", "wrong-password")
		requireAPIError(t, errWrong, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)

		_, errUnknown := s.client().Login(ctx, "nobody@example.com", "hunter22")
		requireAPIError(t, errUnknown, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)

		assert.Equal(t, errWrong.Error(), errUnknown.Error())
	})

	t.Run("missing password", func(t *testing.T) {
		resp, body := s.do(t, http.MethodPost, "/v1/auth/login", `{"email":"a@example.com"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "password")
	})
}

func TestRefresh(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	c, _ := s.signUp(t, "a@example.com", "hunter22")

	t.Run("expired access token is reported", func(t *testing.T) {
		s.clock.Advance(20 * time.Minute)
		_, err := c.Me(ctx)
		requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidAccessToken)
		assert.Contains(t, err.Error(), "Token expired")
	})

	t.Run("refresh restores access", func(t *testing.T) {
		require.NoError(t, c.Refresh(ctx))
		_, err := c.Me(ctx)
		require.NoError(t, err)
	})
}

func TestRefreshRotatesNearExpiry(t *testing.T) {
	s := newServer(t)

	resp, _ := s.do(t, http.MethodPost, "/v1/auth/register",
		`{"email":"a@example.com","password":"hunter22","confirmPassword":"hunter22"}`)
	refresh := cookieNamed(resp, authsdk.RefreshTokenCookie)
	require.NotNil(t, refresh)

	t.Run("far from expiry keeps the refresh token", func(t *testing.T) {
		resp, body := s.do(t, http.MethodGet, "/v1/auth/refresh", "", refresh)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
		assert.NotNil(t, cookieNamed(resp, authsdk.AccessTokenCookie))
		assert.Nil(t, cookieNamed(resp, authsdk.RefreshTokenCookie))
	})

	t.Run("within a day of expiry rotates", func(t *testing.T) {
		s.clock.Advance(29*24*time.Hour + 12*time.Hour)
		resp, body := s.do(t, http.MethodGet, "/v1/auth/refresh", "", refresh)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)

		rotated := cookieNamed(resp, authsdk.RefreshTokenCookie)
		require.NotNil(t, rotated)
		assert.NotEqual(t, refresh.Value, rotated.Value)
	})
}

func TestRefreshFailureClearsCookies(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name    string
		cookies []*http.Cookie
		code    string
	}{
		{"missing", nil, authsdk.ErrorCodeMissingRefreshToken},
		{"garbage", []*http.Cookie{{Name: authsdk.RefreshTokenCookie, Value: "not-a-jwt"}}, authsdk.ErrorCodeInvalidRefreshToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.do(t, http.MethodGet, "/v1/auth/refresh", "", tt.cookies...)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Contains(t, body, tt.code)

			for _, name := range []string{authsdk.AccessTokenCookie, authsdk.RefreshTokenCookie} {
				c := cookieNamed(resp, name)
				require.NotNil(t, c, name)
				assert.Empty(t, c.Value)
				assert.Negative(t, c.MaxAge)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	c, _ := s.signUp(t, "a@example.com", "hunter22")

	require.NoError(t, c.Logout(ctx))

	_, err := c.Me(ctx)
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidAccessToken)

	err = c.Refresh(ctx)
	requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeMissingRefreshToken)

	// Logging out again, now without cookies, still succeeds.
	require.NoError(t, c.Logout(ctx))
}

func TestLogoutEndsSession(t *testing.T) {
	s := newServer(t)

	resp, _ := s.do(t, http.MethodPost, "/v1/auth/register",
		`{"email":"a@example.com","password":"hunter22","confirmPassword":"hunter22"}`)
	access := cookieNamed(resp, authsdk.AccessTokenCookie)
	refresh := cookieNamed(resp, authsdk.RefreshTokenCookie)

	resp, _ = s.do(t, http.MethodGet, "/v1/auth/logout", "", access)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := s.do(t, http.MethodGet, "/v1/auth/refresh", "", refresh)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, authsdk.ErrorCodeSessionExpired)
}
