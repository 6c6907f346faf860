package mcp

import (
	"crypto/subtle"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultMaxBodyBytes int64 = 1 << 20

type HTTPHandlerConfig struct {
	AuthToken       string
	RateLimitPerMin int
	MaxBodyBytes    int64
}

// guard fronts the streamable transport. Requests are checked for a bearer
// token first, then charged against the caller's bucket, then body-capped.
type guard struct {
	next    http.Handler
	token   []byte
	limiter *limiter
	maxBody int64
}

func newGuard(next http.Handler, cfg HTTPHandlerConfig) *guard {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &guard{
		next:    next,
		token:   []byte(strings.TrimSpace(cfg.AuthToken)),
		limiter: newLimiter(cfg.RateLimitPerMin, time.Now),
		maxBody: maxBody,
	}
}

func (g *guard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	provided, ok := strings.CutPrefix(strings.TrimSpace(r.Header.Get("Authorization")), "Bearer ")
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_bearer_token")
		return
	}
	provided = strings.TrimSpace(provided)
	if len(g.token) == 0 || subtle.ConstantTimeCompare([]byte(provided), g.token) != 1 {
		writeError(w, http.StatusForbidden, "invalid_bearer_token")
		return
	}
	if !g.limiter.allow(clientHost(r)) {
		writeError(w, http.StatusTooManyRequests, "rate_limited")
		return
	}
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, g.maxBody)
	}
	g.next.ServeHTTP(w, r)
}

func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		host = strings.TrimSpace(r.RemoteAddr)
	}
	if host == "" {
		return "unknown"
	}
	return host
}

// maxTrackedHosts caps the limiter table. Past it, hosts idle long enough
// to have refilled are forgotten.
const maxTrackedHosts = 4096

// limiter hands each host its own rate.Limiter refilling perMin/60 tokens
// per second, capped at perMin.
type limiter struct {
	mu    sync.Mutex
	every rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time
	hosts map[string]*hostLimiter
}

type hostLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLimiter(perMin int, now func() time.Time) *limiter {
	if perMin <= 0 {
		perMin = 60
	}
	return &limiter{
		every: rate.Limit(float64(perMin) / 60),
		burst: perMin,
		idle:  time.Minute,
		now:   now,
		hosts: make(map[string]*hostLimiter),
	}
}

func (l *limiter) allow(host string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	h, ok := l.hosts[host]
	if !ok {
		if len(l.hosts) >= maxTrackedHosts {
			l.evictIdle(now)
		}
		h = &hostLimiter{lim: rate.NewLimiter(l.every, l.burst)}
		l.hosts[host] = h
	}
	h.seen = now
	return h.lim.AllowN(now, 1)
}

// evictIdle drops hosts whose bucket is full again. If every host is busy
// the table is reset.
func (l *limiter) evictIdle(now time.Time) {
	for host, h := range l.hosts {
		if now.Sub(h.seen) >= l.idle {
			delete(l.hosts, host)
		}
	}
	if len(l.hosts) >= maxTrackedHosts {
		clear(l.hosts)
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": code})
}
