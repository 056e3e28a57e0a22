package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// ErrNoCSRFKey is returned when a token is requested for an anonymous caller.
var ErrNoCSRFKey = errors.New("csrf key is required")

// CSRFSigner derives form and header tokens from whatever identifies the
// caller's login: a session ID, or "identity:<sub>" for identity-token cookies.
// Tokens need no storage and stay valid for the life of that login.
type CSRFSigner struct {
	secret []byte
}

func NewCSRFSigner(secret string) *CSRFSigner {
	return &CSRFSigner{secret: []byte(secret)}
}

// Token returns the token for key.
func (s *CSRFSigner) Token(key string) (string, error) {
	if key == "" {
		return "", ErrNoCSRFKey
	}
	return base64.RawURLEncoding.EncodeToString(s.sum(key)), nil
}

// Verify reports whether token was issued for key.
func (s *CSRFSigner) Verify(key, token string) bool {
	if key == "" || token == "" {
		return false
	}
	got, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	return hmac.Equal(got, s.sum(key))
}

func (s *CSRFSigner) sum(key string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte("learnsprout-csrf\x00"))
	mac.Write([]byte(key))
	return mac.Sum(nil)
}
