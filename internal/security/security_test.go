package security

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	clock := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	if !rl.Allow("1.2.3.4") {
		t.Fatal("first hit should be allowed")
	}
	clock = clock.Add(30 * time.Second)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("second hit should be allowed")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("third hit inside the window should be limited")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other clients are counted separately")
	}

	// the first hit leaves the window, the second has not
	clock = clock.Add(31 * time.Second)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("hit after the oldest expired should be allowed")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("window is full again")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	var recs []*httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		h.ServeHTTP(rec, req)
		recs = append(recs, rec)
	}
	if recs[0].Code != http.StatusNoContent || recs[1].Code != http.StatusTooManyRequests {
		t.Fatalf("status codes = %d, %d", recs[0].Code, recs[1].Code)
	}
	if got := recs[1].Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
}

func TestAllowRequestKeysOnRoute(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()

	login := httptest.NewRequest(http.MethodPost, "/login", nil)
	signup := httptest.NewRequest(http.MethodPost, "/signup", nil)
	if _, ok := rl.AllowRequest(login); !ok {
		t.Fatal("first login should be allowed")
	}
	if _, ok := rl.AllowRequest(signup); !ok {
		t.Fatal("signup has its own budget")
	}
	if _, ok := rl.AllowRequest(login); ok {
		t.Fatal("second login should be limited")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "9.9.9.9, 10.0.0.1"}, remote: "1.1.1.1:1", want: "9.9.9.9"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "8.8.8.8"}, remote: "1.1.1.1:1", want: "8.8.8.8"},
		{name: "remote addr", remote: "7.7.7.7:4242", want: "7.7.7.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCSRFSigner(t *testing.T) {
	signer := NewCSRFSigner("secret")

	token, err := signer.Token("session-1")
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	tests := []struct {
		name   string
		signer *CSRFSigner
		key    string
		token  string
		want   bool
	}{
		{name: "own session", signer: signer, key: "session-1", token: token, want: true},
		{name: "other session", signer: signer, key: "session-2", token: token, want: false},
		{name: "identity key", signer: signer, key: "identity:session-1", token: token, want: false},
		{name: "other secret", signer: NewCSRFSigner("other"), key: "session-1", token: token, want: false},
		{name: "not base64", signer: signer, key: "session-1", token: "%%%", want: false},
		{name: "empty token", signer: signer, key: "session-1", token: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.signer.Verify(tt.key, tt.token); got != tt.want {
				t.Errorf("Verify(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}

	if _, err := signer.Token(""); !errors.Is(err, ErrNoCSRFKey) {
		t.Errorf("Token(\"\") error = %v, want ErrNoCSRFKey", err)
	}
}

func TestIsHTTPS(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    bool
	}{
		{name: "plain", want: false},
		{name: "x-forwarded-proto", headers: map[string]string{"X-Forwarded-Proto": "HTTPS"}, want: true},
		{name: "first hop wins", headers: map[string]string{"X-Forwarded-Proto": "http, https"}, want: false},
		{name: "forwarded", headers: map[string]string{"Forwarded": `for=1.2.3.4;proto="https"`}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := IsHTTPS(req); got != tt.want {
				t.Errorf("IsHTTPS() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthCookies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")

	c := AuthCookie(req, "session_id", "abc", time.Now().Add(time.Hour))
	if !c.Secure || !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("auth cookie = %+v", c)
	}
	if d := ClearCookie(httptest.NewRequest(http.MethodGet, "/", nil), "session_id"); d.MaxAge != -1 || d.Secure || d.Value != "" {
		t.Errorf("clear cookie = %+v", d)
	}
	if NewToken() == NewToken() {
		t.Error("NewToken() repeated a value")
	}
}
