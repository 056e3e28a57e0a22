package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"learnsprout/internal/security"
)

const (
	oauthFlowCookie  = "ls_oauth"
	oauthFlowTTL     = 10 * time.Minute
	oauthHTTPTimeout = 10 * time.Second

	googleOpenIDUserInfo = "https://openidconnect.googleapis.com/v1/userinfo"
)

// OAuthProvider is one external sign-in option.
type OAuthProvider struct {
	Name        string
	Label       string
	Config      *oauth2.Config
	UserInfoURL string
}

// GoogleProvider returns Google sign-in using the OpenID Connect userinfo endpoint.
func GoogleProvider(clientID, clientSecret string) OAuthProvider {
	return OAuthProvider{
		Name:  "google",
		Label: "Google",
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL: googleOpenIDUserInfo,
	}
}

func (p OAuthProvider) configured() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

// OAuthProviderView is what the login and signup pages render per provider button.
type OAuthProviderView struct {
	Name     string
	Label    string
	URL      string
	CSSClass string
}

// oauthFlow is carried in a short-lived cookie between StartOAuth and OAuthCallback.
type oauthFlow struct {
	Provider string `json:"p"`
	State    string `json:"s"`
	Verifier string `json:"v"`
	Invite   string `json:"i,omitempty"`
	Redirect string `json:"r,omitempty"`
}

func (f oauthFlow) encode() (string, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func readOAuthFlow(r *http.Request) (oauthFlow, error) {
	var f oauthFlow
	c, err := r.Cookie(oauthFlowCookie)
	if err != nil {
		return f, err
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return f, fmt.Errorf("decode oauth cookie: %w", err)
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("parse oauth cookie: %w", err)
	}
	return f, nil
}

type oauthIdentity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

var errUnverifiedEmail = errors.New("email address is not verified with the provider")

func (h *AuthHandler) oauthProviderViews(r *http.Request) []OAuthProviderView {
	q := url.Values{}
	for _, key := range []string{"invite", "redirect"} {
		if v := r.URL.Query().Get(key); v != "" {
			q.Set(key, v)
		}
	}
	suffix := ""
	if len(q) > 0 {
		suffix = "?" + q.Encode()
	}

	views := make([]OAuthProviderView, 0, len(h.oauthProviders))
	for key, p := range h.oauthProviders {
		if !p.configured() {
			continue
		}
		views = append(views, OAuthProviderView{
			Name:     key,
			Label:    p.Label,
			URL:      "/auth/" + key + "/start" + suffix,
			CSSClass: "btn-" + key,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	return views
}

func (h *AuthHandler) provider(r *http.Request) (string, OAuthProvider, bool) {
	key := r.PathValue("provider")
	p, ok := h.oauthProviders[key]
	return key, p, ok && p.configured()
}

// StartOAuth sends the browser to the provider's consent page with a PKCE challenge.
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	key, p, ok := h.provider(r)
	if !ok {
		h.oauthError(w, r, "That sign-in option is not available", http.StatusNotFound)
		return
	}

	flow := oauthFlow{
		Provider: key,
		State:    security.NewToken(),
		Verifier: oauth2.GenerateVerifier(),
		Invite:   r.URL.Query().Get("invite"),
		Redirect: safeRedirect(r.URL.Query().Get("redirect"), ""),
	}
	value, err := flow.encode()
	if err != nil {
		h.log.Error("encode oauth flow", "error", err)
		h.oauthError(w, r, "Could not start sign-in", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, security.AuthCookie(r, oauthFlowCookie, value, time.Now().Add(oauthFlowTTL)))

	cfg := h.oauthConfig(r, key, p)
	http.Redirect(w, r, cfg.AuthCodeURL(flow.State, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(flow.Verifier)), http.StatusFound)
}

// OAuthCallback finishes the code exchange and signs the user in.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	key, p, ok := h.provider(r)
	if !ok {
		h.oauthError(w, r, "That sign-in option is not available", http.StatusNotFound)
		return
	}

	flow, err := readOAuthFlow(r)
	http.SetCookie(w, security.ClearCookie(r, oauthFlowCookie))
	q := r.URL.Query()
	switch {
	case err != nil:
		h.oauthError(w, r, "Your sign-in attempt expired, please try again", http.StatusBadRequest)
		return
	case flow.Provider != key || flow.State == "" || flow.State != q.Get("state"):
		h.log.Warn("oauth state mismatch", "provider", key)
		h.oauthError(w, r, "Your sign-in attempt expired, please try again", http.StatusBadRequest)
		return
	case q.Get("error") != "":
		h.oauthError(w, r, "Sign-in was cancelled", http.StatusBadRequest)
		return
	case q.Get("code") == "":
		h.oauthError(w, r, "Missing authorization code", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), oauthHTTPTimeout)
	defer cancel()

	cfg := h.oauthConfig(r, key, p)
	token, err := cfg.Exchange(ctx, q.Get("code"), oauth2.VerifierOption(flow.Verifier))
	if err != nil {
		h.log.Warn("oauth code exchange failed", "provider", key, "error", err)
		h.oauthError(w, r, "Could not complete sign-in", http.StatusBadGateway)
		return
	}

	who, err := fetchIdentity(ctx, cfg, p.UserInfoURL, token)
	if err != nil {
		h.log.Warn("oauth userinfo failed", "provider", key, "error", err)
		msg := "Could not read your account details"
		if errors.Is(err, errUnverifiedEmail) {
			msg = "Please verify your email address with " + p.Label + " first"
		}
		h.oauthError(w, r, msg, http.StatusBadRequest)
		return
	}

	session, user, err := h.authService.OAuthLogin(key, who.Subject, who.Email, who.Name, flow.Invite)
	if err != nil {
		if status, _ := statusFor(err); status == http.StatusInternalServerError {
			h.log.Error("oauth login failed", "provider", key, "error", err)
		}
		h.oauthError(w, r, userMessage(err), http.StatusBadRequest)
		return
	}

	http.SetCookie(w, security.AuthCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	http.Redirect(w, r, safeRedirect(flow.Redirect, user.Role.LandingPath()), http.StatusSeeOther)
}

func fetchIdentity(ctx context.Context, cfg *oauth2.Config, endpoint string, token *oauth2.Token) (oauthIdentity, error) {
	var who oauthIdentity
	resp, err := cfg.Client(ctx, token).Get(endpoint)
	if err != nil {
		return who, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return who, fmt.Errorf("userinfo request: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&who); err != nil {
		return who, fmt.Errorf("userinfo decode: %w", err)
	}
	if who.Subject == "" || who.Email == "" {
		return who, errors.New("userinfo is missing sub or email")
	}
	if !who.EmailVerified {
		return who, errUnverifiedEmail
	}
	return who, nil
}

// oauthConfig copies the provider config with a callback URL for this deployment.
func (h *AuthHandler) oauthConfig(r *http.Request, key string, p OAuthProvider) *oauth2.Config {
	base := strings.TrimRight(strings.TrimSpace(h.oauthRedirectBaseURL), "/")
	if base == "" {
		scheme := "http"
		if security.IsHTTPS(r) {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	cfg := *p.Config
	cfg.RedirectURL = base + "/auth/" + key + "/callback"
	return &cfg
}

func (h *AuthHandler) oauthError(w http.ResponseWriter, r *http.Request, message string, status int) {
	h.render(w, r, status, "login.tmpl", map[string]interface{}{
		"Title":          "Log in - LearnSprout",
		"Error":          message,
		"OAuthProviders": h.oauthProviderViews(r),
	})
}
