package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/authd/internal/auth/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	reg := e.register(t, "erin@example.com", "hunter22")

	e.clock.Advance(time.Minute)
	res, err := e.svc.Login(ctx, service.LoginInput{Email: "ERIN@example.com", Password: "hunter22", UserAgent: "cli"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)
	assert.NotEqual(t, reg.Tokens.RefreshToken, res.Tokens.RefreshToken)

	views, err := e.svc.ListSessions(ctx, reg.User.ID, "")
	require.NoError(t, err)
	require.Len(t, views, 2, "login must not touch the existing session")
	assert.Equal(t, "cli", views[0].UserAgent)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "frank@example.com", "hunter22")

	_, wrongPassword := e.svc.Login(ctx, service.LoginInput{Email: "frank@example.com", Password: "nope-nope"})
	_, unknownEmail := e.svc.Login(ctx, service.LoginInput{Email: "ghost@example.com", Password: "hunter22"})

	require.ErrorIs(t, wrongPassword, service.ErrInvalidCredentials)
	require.ErrorIs(t, unknownEmail, service.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.Equal(t, "Invalid email or password", service.ErrInvalidCredentials.Message)
	assert.Equal(t, service.KindUnauthorized, service.KindOf(unknownEmail))
}
