package jwtx_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/authd/pkg/clockx"
	"github.com/aussiebroadwan/authd/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestCodec(t *testing.T) (*jwtx.Codec, *clockx.Manual) {
	t.Helper()
	clock := clockx.NewManual(testNow)
	codec, err := jwtx.NewCodec(jwtx.Config{
		Issuer:  "authd",
		Access:  jwtx.KeyConfig{Secret: []byte("access-secret-for-tests")},
		Refresh: jwtx.KeyConfig{Secret: []byte("refresh-secret-for-tests")},
		Clock:   clock,
	})
	require.NoError(t, err)
	return codec, clock
}

func TestNewCodecConfig(t *testing.T) {
	t.Parallel()

	t.Run("missing secret", func(t *testing.T) {
		_, err := jwtx.NewCodec(jwtx.Config{
			Access: jwtx.KeyConfig{Secret: []byte("a")},
		})
		require.ErrorIs(t, err, jwtx.ErrConfig)
	})

	t.Run("identical secrets", func(t *testing.T) {
		_, err := jwtx.NewCodec(jwtx.Config{
			Access:  jwtx.KeyConfig{Secret: []byte("same")},
			Refresh: jwtx.KeyConfig{Secret: []byte("same")},
		})
		require.ErrorIs(t, err, jwtx.ErrConfig)
	})

	t.Run("defaults applied", func(t *testing.T) {
		codec, _ := newTestCodec(t)
		require.Equal(t, jwtx.DefaultAccessTokenTTL, codec.TTL(jwtx.KindAccess))
		require.Equal(t, jwtx.DefaultRefreshTokenTTL, codec.TTL(jwtx.KindRefresh))
	})
}

func TestSignVerifyRoundTrip(t *testing.T) {
	t.Parallel()
	codec, _ := newTestCodec(t)

	access, err := codec.Sign(jwtx.KindAccess, jwtx.Payload{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)

	p, err := codec.Verify(jwtx.KindAccess, access)
	require.NoError(t, err)
	require.Equal(t, jwtx.Payload{UserID: "u1", SessionID: "s1"}, p)
}

func TestRefreshTokenNeverCarriesUserID(t *testing.T) {
	t.Parallel()
	codec, _ := newTestCodec(t)

	refresh, err := codec.Sign(jwtx.KindRefresh, jwtx.Payload{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)

	p, err := codec.Verify(jwtx.KindRefresh, refresh)
	require.NoError(t, err)
	require.Equal(t, "s1", p.SessionID)
	require.Empty(t, p.UserID)

	// Inspect the raw claims too.
	claims := &jwtx.Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(refresh, claims)
	require.NoError(t, err)
	require.Empty(t, claims.UserID)
}

func TestSignIsDeterministic(t *testing.T) {
	t.Parallel()
	codec, _ := newTestCodec(t)

	a, err := codec.Sign(jwtx.KindAccess, jwtx.Payload{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)
	b, err := codec.Sign(jwtx.KindAccess, jwtx.Payload{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestVerifyRejectsCrossKind(t *testing.T) {
	t.Parallel()
	codec, _ := newTestCodec(t)

	refresh, err := codec.Sign(jwtx.KindRefresh, jwtx.Payload{SessionID: "s1"})
	require.NoError(t, err)
	_, err = codec.Verify(jwtx.KindAccess, refresh)
	require.ErrorIs(t, err, jwtx.ErrMalformed)

	access, err := codec.Sign(jwtx.KindAccess, jwtx.Payload{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)
	_, err = codec.Verify(jwtx.KindRefresh, access)
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}

func TestVerifyExpiry(t *testing.T) {
	t.Parallel()
	codec, clock := newTestCodec(t)

	access, err := codec.Sign(jwtx.KindAccess, jwtx.Payload{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)

	clock.Advance(jwtx.DefaultAccessTokenTTL - time.Second)
	_, err = codec.Verify(jwtx.KindAccess, access)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = codec.Verify(jwtx.KindAccess, access)
	require.ErrorIs(t, err, jwtx.ErrExpired)
	require.NotErrorIs(t, err, jwtx.ErrMalformed)
}

func TestVerifyMalformed(t *testing.T) {
	t.Parallel()
	codec, _ := newTestCodec(t)

	other, err := jwtx.NewCodec(jwtx.Config{
		Issuer:  "authd",
		Access:  jwtx.KeyConfig{Secret: []byte("another-access-secret")},
		Refresh: jwtx.KeyConfig{Secret: []byte("another-refresh-secret")},
		Clock:   clockx.NewManual(testNow),
	})
	require.NoError(t, err)
	foreign, err := other.Sign(jwtx.KindAccess, jwtx.Payload{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)

	valid, err := codec.Sign(jwtx.KindAccess, jwtx.Payload{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)
	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwtx.NewClaims(
		jwtx.Payload{UserID: "u1", SessionID: "s1"}, "authd", "user", time.Hour, testNow,
	))
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	wrongAud, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtx.NewClaims(
		jwtx.Payload{UserID: "u1", SessionID: "s1"}, "authd", "admin", time.Hour, testNow,
	)).SignedString([]byte("access-secret-for-tests"))
	require.NoError(t, err)

	noSession, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtx.NewClaims(
		jwtx.Payload{UserID: "u1"}, "authd", "user", time.Hour, testNow,
	)).SignedString([]byte("access-secret-for-tests"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"foreign secret", foreign},
		{"tampered payload", tampered},
		{"alg none", unsigned},
		{"wrong audience", wrongAud},
		{"missing session id", noSession},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				_, err := codec.Verify(jwtx.KindAccess, tt.token)
				require.ErrorIs(t, err, jwtx.ErrMalformed)
			})
		})
	}
}

func TestCodecConcurrentUse(t *testing.T) {
	t.Parallel()
	codec, _ := newTestCodec(t)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := codec.Sign(jwtx.KindAccess, jwtx.Payload{UserID: "u", SessionID: "s"})
			require.NoError(t, err)
			_, err = codec.Verify(jwtx.KindAccess, tok)
			require.NoError(t, err)
		}()
	}
	wg.Wait()
}
