// Package token contains utilities for http tokens.
package token

import (
	"net/http"
	"strings"
	"time"
)

const (
	AccessTokenName  = "accessToken"
	RefreshTokenName = "refreshToken"
)

func newCookie(name, value string, maxAge time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(maxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	}
}

func NewAccessTokenCookie(token string, lifetime time.Duration, secure bool) *http.Cookie {
	return newCookie(AccessTokenName, token, lifetime, secure)
}

func NewRefreshTokenCookie(token string, lifetime time.Duration, secure bool) *http.Cookie {
	return newCookie(RefreshTokenName, token, lifetime, secure)
}

// ClearCookies expires both session cookies on the client.
func ClearCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{AccessTokenName, RefreshTokenName} {
		c := newCookie(name, "", 0, secure)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

// ExtractAccessToken returns the access token from the cookie, falling back
// to an Authorization: Bearer header. It returns "" when neither is present.
func ExtractAccessToken(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenName); err == nil && c.Value != "" {
		return c.Value
	}
	scheme, value, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}

// RefreshTokenFromCookie returns the refresh token cookie value, or "".
func RefreshTokenFromCookie(r *http.Request) string {
	if c, err := r.Cookie(RefreshTokenName); err == nil {
		return c.Value
	}
	return ""
}
