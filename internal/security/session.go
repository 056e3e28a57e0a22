package security

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewToken returns a random opaque value for session IDs and OAuth state.
func NewToken() string {
	return uuid.NewString()
}

// IsHTTPS reports whether the client reached us over TLS, directly or
// through a proxy that sets X-Forwarded-Proto or Forwarded.
func IsHTTPS(r *http.Request) bool {
	if r.TLS != nil || r.URL.Scheme == "https" {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		first, _, _ := strings.Cut(proto, ",")
		return strings.EqualFold(strings.TrimSpace(first), "https")
	}
	for _, part := range strings.Split(r.Header.Get("Forwarded"), ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && strings.EqualFold(k, "proto") {
			return strings.EqualFold(strings.Trim(v, `"`), "https")
		}
	}
	return false
}

// AuthCookie builds an HttpOnly cookie carrying a session ID or identity
// token until expires.
func AuthCookie(r *http.Request, name, value string, expires time.Time) *http.Cookie {
	c := baseCookie(r, name, value)
	c.Expires = expires
	return c
}

// ClearCookie builds a cookie that makes the browser drop name.
func ClearCookie(r *http.Request, name string) *http.Cookie {
	c := baseCookie(r, name, "")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

func baseCookie(r *http.Request, name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   IsHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	}
}
