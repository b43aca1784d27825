// internal/httpserver/ratelimit.go
//
// Per-client token bucket for the write endpoints (register, login, score
// submit). Keyed by the RealIP-resolved remote address.

package httpserver

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/hlog"
	"golang.org/x/time/rate"
)

// limiterSet hands out one token bucket per client IP.
type limiterSet struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   int
	burst int
}

func newLimiterSet(rps, burst int) *limiterSet {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &limiterSet{m: make(map[string]*rate.Limiter), rps: rps, burst: burst}
}

func (l *limiterSet) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.m[key]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Every(time.Second/time.Duration(l.rps)), l.burst)
	l.m[key] = lim
	return lim
}

// middleware rejects clients over their budget with 429.
// RemoteAddr is already the real client address (chimw.RealIP runs first).
func (l *limiterSet) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if host, _, err := net.SplitHostPort(key); err == nil {
			key = host
		}
		if !l.get(key).Allow() {
			hlog.FromRequest(r).Warn().Str("client", key).Str("path", r.URL.Path).Msg("rate limited")
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
