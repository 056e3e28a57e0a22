package security

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter allows limit hits per key within any sliding window. Keys are
// usually a client IP, optionally joined with the route being protected.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter starts a limiter and its janitor goroutine. Call Stop when done.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go rl.janitor(window)
	return rl
}

// Allow records a hit for key and reports whether it is within the limit.
func (rl *RateLimiter) Allow(key string) bool {
	_, ok := rl.take(key)
	return ok
}

// take is Allow that also returns how long until the oldest hit expires.
func (rl *RateLimiter) take(key string) (time.Duration, bool) {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	recent := prune(rl.hits[key], now.Add(-rl.window))
	if len(recent) >= rl.limit {
		rl.hits[key] = recent
		return recent[0].Add(rl.window).Sub(now), false
	}
	rl.hits[key] = append(recent, now)
	return 0, true
}

// prune drops hits at or before cutoff; hits are in ascending order.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

// Middleware answers 429 with Retry-After once a client IP is over the limit.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wait, ok := rl.take(ClientIP(r)); !ok {
			TooManyRequests(w, wait)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TooManyRequests writes a plain 429 telling the client when to retry.
func TooManyRequests(w http.ResponseWriter, wait time.Duration) {
	secs := int(wait.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
}

// AllowRequest keys the hit on client IP and route so one form cannot
// exhaust another's budget.
func (rl *RateLimiter) AllowRequest(r *http.Request) (time.Duration, bool) {
	return rl.take(r.Method + " " + r.URL.Path + "|" + ClientIP(r))
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
	<-rl.done
}

func (rl *RateLimiter) janitor(every time.Duration) {
	defer close(rl.done)
	if every < time.Minute {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			cutoff := rl.now().Add(-rl.window)
			rl.mu.Lock()
			for key, hits := range rl.hits {
				if recent := prune(hits, cutoff); len(recent) == 0 {
					delete(rl.hits, key)
				} else {
					rl.hits[key] = recent
				}
			}
			rl.mu.Unlock()
		}
	}
}

// ClientIP is the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
