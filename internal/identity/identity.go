// Package identity verifies bearer tokens issued by the external identity
// provider and extracts the caller's role claim.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"learnsprout/internal/models"
)

// CookieName is the cookie the identity provider's token travels in
const CookieName = "token"

var (
	ErrNoToken      = errors.New("no identity token")
	ErrInvalidToken = errors.New("invalid identity token")
)

// Principal is the verified caller behind a token
type Principal struct {
	Subject string
	Email   string
	Name    string
	// EmailVerified is the provider's email_verified claim
	EmailVerified bool
	Role          models.Role
	// RoleClaimed is false when the token carried no role and Role is the default
	RoleClaimed bool
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Role          string `json:"role"`
}

// Options configure a Verifier. At least one of JWKSURL or HMACSecret must be set.
type Options struct {
	JWKSURL    string
	HMACSecret string
	Issuer     string
	Audience   string
	HTTPClient *http.Client
	// CacheTTL bounds how long fetched signing keys are trusted
	CacheTTL time.Duration
}

// Verifier checks RS256 tokens against a JWKS endpoint and HS256 tokens against a shared secret
type Verifier struct {
	opts  Options
	keys  *keySet
	now   func() time.Time
	valid []string
}

// NewVerifier creates a verifier
func NewVerifier(opts Options) (*Verifier, error) {
	if opts.JWKSURL == "" && opts.HMACSecret == "" {
		return nil, errors.New("identity verifier needs a JWKS URL or an HMAC secret")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}

	v := &Verifier{opts: opts, now: time.Now}
	if opts.JWKSURL != "" {
		v.keys = &keySet{url: opts.JWKSURL, client: opts.HTTPClient, ttl: opts.CacheTTL}
		v.valid = append(v.valid, "RS256")
	}
	if opts.HMACSecret != "" {
		v.valid = append(v.valid, "HS256")
	}
	return v, nil
}

// Verify parses and validates a raw token
func (v *Verifier) Verify(ctx context.Context, raw string) (*Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(v.valid),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.opts.Issuer))
	}
	if v.opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.opts.Audience))
	}

	claims := &tokenClaims{}
	token, err := jwt.NewParser(parserOpts...).ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.Alg() {
		case "HS256":
			return []byte(v.opts.HMACSecret), nil
		case "RS256":
			kid, _ := token.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing key id")
			}
			return v.keys.get(ctx, kid)
		default:
			return nil, fmt.Errorf("unexpected signing method %s", token.Method.Alg())
		}
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Principal{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Role:          models.ParseRole(claims.Role),
		RoleClaimed:   strings.TrimSpace(claims.Role) != "",
	}, nil
}

// FromRequest verifies the token cookie, falling back to an Authorization bearer header
func (v *Verifier) FromRequest(r *http.Request) (*Principal, error) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return v.Verify(r.Context(), c.Value)
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return v.Verify(r.Context(), strings.TrimPrefix(auth, "Bearer "))
	}
	return nil, ErrNoToken
}

// keySet caches RSA keys from a JWKS endpoint
type keySet struct {
	url    string
	client *http.Client
	ttl    time.Duration

	mu        sync.Mutex
	keys      map[string]interface{}
	fetchedAt time.Time
}
