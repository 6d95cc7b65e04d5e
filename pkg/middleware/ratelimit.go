package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mxansari007/pearlbloom-admin/pkg/httputil"
)

const visitorTTL = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorStore keeps one token bucket per client IP. Stale entries are swept
// on access once per TTL.
type visitorStore struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rps       float64
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	nowFunc   func() time.Time
}

func newVisitorStore(rps float64, burst int, ttl time.Duration) *visitorStore {
	return &visitorStore{
		visitors:  make(map[string]*visitor),
		rps:       rps,
		burst:     burst,
		ttl:       ttl,
		lastSweep: time.Now(),
		nowFunc:   time.Now,
	}
}

func (s *visitorStore) getVisitor(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	if now.Sub(s.lastSweep) > s.ttl {
		s.sweep(now)
	}

	v, ok := s.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(s.rps), s.burst)}
		s.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (s *visitorStore) sweep(now time.Time) {
	for ip, v := range s.visitors {
		if now.Sub(v.lastSeen) > s.ttl {
			delete(s.visitors, ip)
		}
	}
	s.lastSweep = now
}

func (s *visitorStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	RPS   float64
	Burst int
	// TrustedProxies are the CIDRs of reverse proxies whose X-Forwarded-For
	// and X-Real-IP headers are believed. Empty means the peer address is
	// always the client.
	TrustedProxies []string
}

// RateLimit returns middleware that enforces per-IP token bucket limiting.
// A nil reject writes 429 {"error": "too many requests"}. Preflight requests
// are never limited.
func RateLimit(cfg RateLimitConfig, l *slog.Logger, reject RejectFunc) func(http.Handler) http.Handler {
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	if reject == nil {
		reject = func(w http.ResponseWriter, _ *http.Request, message string) {
			httputil.WriteErrorMessage(w, http.StatusTooManyRequests, message)
		}
	}
	store := newVisitorStore(cfg.RPS, burst, visitorTTL)
	trusted := parseCIDRs(cfg.TrustedProxies, "trusted proxy", l)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r, trusted)
			if !store.getVisitor(ip).Allow() {
				l.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				reject(w, r, "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the connection peer unless that peer is a trusted proxy. Behind
// trusted proxies X-Forwarded-For is walked right to left and the first hop
// outside the trusted ranges wins; X-Real-IP is used when there is no chain.
func clientIP(r *http.Request, trusted []*net.IPNet) string {
	peer := remoteHost(r)
	if !containsIP(trusted, net.ParseIP(peer)) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		client := ""
		for i := len(hops) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(hops[i]))
			if ip == nil {
				break
			}
			client = ip.String()
			if !containsIP(trusted, ip) {
				return client
			}
		}
		if client != "" {
			return client
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
			return ip.String()
		}
	}
	return peer
}
