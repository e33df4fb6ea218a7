package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/authd/internal/auth/service"
	"github.com/aussiebroadwan/authd/pkg/jwtx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	reg := e.register(t, "xena@example.com", "hunter22")

	p, err := e.svc.Authenticate(ctx, reg.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, p.UserID)
	assert.NotEmpty(t, p.SessionID)

	_, err = e.svc.Authenticate(ctx, "garbage")
	require.ErrorIs(t, err, service.ErrInvalidAccessToken)
	assert.Equal(t, "Invalid token", service.ErrInvalidAccessToken.Message)

	_, err = e.svc.Authenticate(ctx, reg.Tokens.RefreshToken)
	require.ErrorIs(t, err, service.ErrInvalidAccessToken)

	e.clock.Advance(jwtx.DefaultAccessTokenTTL + time.Second)
	_, err = e.svc.Authenticate(ctx, reg.Tokens.AccessToken)
	require.ErrorIs(t, err, service.ErrAccessTokenExpired)
	assert.Equal(t, "Token expired", service.ErrAccessTokenExpired.Message)
}

func TestGetUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	reg := e.register(t, "yara@example.com", "hunter22")

	u, err := e.svc.GetUser(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.User, u)

	_, err = e.svc.GetUser(ctx, "missing")
	require.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestListAndRevokeSessions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	reg := e.register(t, "zoe@example.com", "hunter22")
	current, err := e.svc.Authenticate(ctx, reg.Tokens.AccessToken)
	require.NoError(t, err)

	e.clock.Advance(time.Minute)
	_, err = e.svc.Login(ctx, service.LoginInput{Email: "zoe@example.com", Password: "hunter22", UserAgent: "phone"})
	require.NoError(t, err)

	intruder := e.register(t, "intruder@example.com", "hunter22")

	views, err := e.svc.ListSessions(ctx, reg.User.ID, current.SessionID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "phone", views[0].UserAgent)
	assert.False(t, views[0].IsCurrent)
	assert.True(t, views[1].IsCurrent)
	assert.Equal(t, current.SessionID, views[1].ID)

	t.Run("other users cannot revoke", func(t *testing.T) {
		err := e.svc.RevokeSession(ctx, intruder.User.ID, views[0].ID)
		require.ErrorIs(t, err, service.ErrSessionNotFound)
	})

	t.Run("owner revokes", func(t *testing.T) {
		require.NoError(t, e.svc.RevokeSession(ctx, reg.User.ID, views[0].ID))
		err := e.svc.RevokeSession(ctx, reg.User.ID, views[0].ID)
		require.ErrorIs(t, err, service.ErrSessionNotFound)

		left, err := e.svc.ListSessions(ctx, reg.User.ID, current.SessionID)
		require.NoError(t, err)
		require.Len(t, left, 1)
		assert.True(t, left[0].IsCurrent)
	})
}
