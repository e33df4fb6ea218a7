package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aussiebroadwan/authd/internal/auth/mail"
	"github.com/aussiebroadwan/authd/pkg/clockx"
	"github.com/aussiebroadwan/authd/pkg/jwtx"
	"github.com/aussiebroadwan/authd/pkg/slogx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, args ...string) Config {
	t.Helper()
	dir := t.TempDir()
	args = append([]string{
		"--log.level=error",
		"--db.dsn=" + filepath.Join(dir, "authd.db"),
		"--pepper.file=" + filepath.Join(dir, "pepper"),
	}, args...)

	cfg, err := LoadConfig("", newFlagSet(t, args...))
	require.NoError(t, err)
	return cfg
}

func TestNew(t *testing.T) {
	application, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	ts := httptest.NewServer(application.Handler())
	t.Cleanup(ts.Close)

	t.Run("ready", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/readyz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("register", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/v1/auth/register", "application/json",
			strings.NewReader(`{"email":"a@example.com","password":"hunter22","confirmPassword":"hunter22"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("housekeeping", func(t *testing.T) {
		res := application.RunHousekeeping(context.Background())
		assert.Zero(t, res.Sessions)
		assert.Zero(t, res.Codes)
	})
}

func TestNew_UnreachableRedis(t *testing.T) {
	_, err := New(context.Background(), testConfig(t,
		"--sessions.backend=redis",
		"--redis.addr=127.0.0.1:1",
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect")
}

func TestInitTokenCodec(t *testing.T) {
	t.Run("configured secrets", func(t *testing.T) {
		cfg := testConfig(t, "--jwt.access_secret=a-secret", "--jwt.refresh_secret=r-secret")
		codec, err := InitTokenCodec(cfg, clockx.System{}, slogx.Discard())
		require.NoError(t, err)

		tok, err := codec.Sign(jwtx.KindAccess, jwtx.Payload{UserID: "u1", SessionID: "s1"})
		require.NoError(t, err)
		_, err = codec.Verify(jwtx.KindRefresh, tok)
		require.Error(t, err, "kinds use different secrets")
	})

	t.Run("ephemeral secrets in dev", func(t *testing.T) {
		cfg := testConfig(t)
		first, err := InitTokenCodec(cfg, clockx.System{}, slogx.Discard())
		require.NoError(t, err)
		second, err := InitTokenCodec(cfg, clockx.System{}, slogx.Discard())
		require.NoError(t, err)

		tok, err := first.Sign(jwtx.KindAccess, jwtx.Payload{UserID: "u1", SessionID: "s1"})
		require.NoError(t, err)
		_, err = second.Verify(jwtx.KindAccess, tok)
		require.Error(t, err, "a restart invalidates tokens")
	})
}

func TestNewMailer(t *testing.T) {
	t.Run("log", func(t *testing.T) {
		m, ok := NewMailer(testConfig(t)).(mail.RetryMailer)
		require.True(t, ok)
		assert.IsType(t, mail.LogMailer{}, m.Next)
		assert.EqualValues(t, 3, m.Retries)
	})

	t.Run("smtp", func(t *testing.T) {
		m, ok := NewMailer(testConfig(t, "--mail.driver=smtp", "--smtp.host=mail.example.com")).(mail.RetryMailer)
		require.True(t, ok)
		smtp, ok := m.Next.(*mail.SMTPMailer)
		require.True(t, ok)
		assert.Equal(t, "mail.example.com", smtp.Host)
		assert.Equal(t, 587, smtp.Port)
	})
}
