package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/authd/internal/auth/domain"
	"github.com/aussiebroadwan/authd/pkg/authsdk"
)

// CookieConfig controls how session tokens are written to the browser.
type CookieConfig struct {
	// Secure marks cookies HTTPS-only. Off only in development.
	Secure bool

	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (c CookieConfig) cookie(name, value, path string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// setAuthCookies writes the access token and, when present, the refresh
// token. The refresh cookie is scoped to the refresh endpoint.
func (c CookieConfig) setAuthCookies(w http.ResponseWriter, tokens domain.TokenPair) {
	if tokens.AccessToken != "" {
		http.SetCookie(w, c.cookie(authsdk.AccessTokenCookie, tokens.AccessToken,
			authsdk.AccessTokenPath, int(c.AccessTTL.Seconds())))
	}
	if tokens.RefreshToken != "" {
		http.SetCookie(w, c.cookie(authsdk.RefreshTokenCookie, tokens.RefreshToken,
			authsdk.RefreshTokenPath, int(c.RefreshTTL.Seconds())))
	}
}

func (c CookieConfig) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(authsdk.AccessTokenCookie, "", authsdk.AccessTokenPath, -1))
	http.SetCookie(w, c.cookie(authsdk.RefreshTokenCookie, "", authsdk.RefreshTokenPath, -1))
}

func refreshToken(r *http.Request) string {
	c, err := r.Cookie(authsdk.RefreshTokenCookie)
	if err != nil {
		return ""
	}
	return c.Value
}
