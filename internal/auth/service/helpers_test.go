package service_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/authd/internal/auth/mail"
	"github.com/aussiebroadwan/authd/internal/auth/service"
	"github.com/aussiebroadwan/authd/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/authd/pkg/clockx"
	"github.com/aussiebroadwan/authd/pkg/cryptox"
	"github.com/aussiebroadwan/authd/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const origin = "https://app.example.com"

var base = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

// recorder is a Mailer that keeps what it was asked to send.
type recorder struct {
	mu        sync.Mutex
	sent      []mail.Message
	fail      error
	noReceipt bool
}

func (r *recorder) Send(_ context.Context, msg mail.Message) (mail.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return mail.Receipt{}, r.fail
	}
	r.sent = append(r.sent, msg)
	if r.noReceipt {
		return mail.Receipt{}, nil
	}
	return mail.Receipt{ID: "msg-" + msg.To}, nil
}

func (r *recorder) messages() []mail.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mail.Message(nil), r.sent...)
}

func (r *recorder) last(t *testing.T) mail.Message {
	t.Helper()
	msgs := r.messages()
	require.NotEmpty(t, msgs, "no mail sent")
	return msgs[len(msgs)-1]
}

type env struct {
	svc   *service.AuthService
	db    *sqlite.Store
	clock *clockx.Manual
	mail  *recorder
	codec *jwtx.Codec
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations())
	t.Cleanup(func() { _ = db.Close() })

	clock := clockx.NewManual(base)
	codec, err := jwtx.NewCodec(jwtx.Config{
		Issuer:  "authd-test",
		Access:  jwtx.KeyConfig{Secret: []byte("access-secret-for-tests")},
		Refresh: jwtx.KeyConfig{Secret: []byte("refresh-secret-for-tests")},
		Clock:   clock,
	})
	require.NoError(t, err)

	rec := &recorder{}
	svc := &service.AuthService{
		Users:    db.Users(),
		Sessions: db.Sessions(),
		Codes:    db.VerificationCodes(),
		Hasher: &cryptox.PasswordHasher{
			Pepper: "pepper",
			Params: cryptox.Params{Memory: 1024, Iterations: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16},
		},
		Codec:     codec,
		Mailer:    rec,
		Clock:     clock,
		AppOrigin: origin,
	}
	return &env{svc: svc, db: db, clock: clock, mail: rec, codec: codec}
}

func (e *env) register(t *testing.T, email, password string) service.AuthResult {
	t.Helper()
	res, err := e.svc.Register(context.Background(), service.RegisterInput{
		Email:     email,
		Password:  password,
		UserAgent: "test-agent/1.0",
	})
	require.NoError(t, err)
	return res
}

// verifyCode pulls the code out of the last verification link.
func (e *env) verifyCode(t *testing.T) string {
	t.Helper()
	msg := e.mail.last(t)
	i := strings.Index(msg.Text, origin+"/email/verify/")
	require.GreaterOrEqual(t, i, 0, "no verification link in %q", msg.Text)
	rest := msg.Text[i+len(origin+"/email/verify/"):]
	return strings.Fields(rest)[0]
}

// resetLink pulls the last password reset link.
func (e *env) resetLink(t *testing.T) *url.URL {
	t.Helper()
	msg := e.mail.last(t)
	for _, f := range strings.Fields(msg.Text) {
		if strings.HasPrefix(f, origin+"/password/reset?") {
			u, err := url.Parse(f)
			require.NoError(t, err)
			return u
		}
	}
	t.Fatalf("no reset link in %q", msg.Text)
	return nil
}

var errBoom = errors.New("boom")
