package middleware

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// OriginPolicy decides which request origins receive the origin-echo and
// credential CORS headers. It never blocks a request on its own.
type OriginPolicy struct {
	origins  map[string]struct{}
	allowAny bool
}

// NewOriginPolicy builds a policy from an allow-list. Entries are trimmed and
// blanks are ignored; a "*" entry allows every non-empty origin.
func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{origins: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" {
			p.allowAny = true
			continue
		}
		p.origins[o] = struct{}{}
	}
	return p
}

// IsAllowed reports whether origin is on the allow-list.
func (p *OriginPolicy) IsAllowed(origin string) bool {
	if p == nil || origin == "" {
		return false
	}
	if p.allowAny {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

// Origins returns the sorted explicit allow-list entries, with "*" last when
// every origin is allowed.
func (p *OriginPolicy) Origins() []string {
	out := make([]string, 0, len(p.origins)+1)
	for o := range p.origins {
		out = append(out, o)
	}
	sort.Strings(out)
	if p.allowAny {
		out = append(out, "*")
	}
	return out
}

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// Policy decides which origins are echoed back. A nil policy allows none.
	Policy *OriginPolicy

	// AllowedMethods is the list of allowed HTTP methods, joined with ",".
	// Defaults to POST, OPTIONS if empty.
	AllowedMethods []string

	// AllowedHeaders is the list of allowed request headers, joined with ", ".
	// Defaults to Content-Type, Authorization if empty.
	AllowedHeaders []string

	// ExposedHeaders is the list of headers the browser may access.
	ExposedHeaders []string

	// MaxAge is how long (in seconds) preflight results can be cached.
	// Defaults to 3600 if 0.
	MaxAge int

	// AllowCredentials adds Access-Control-Allow-Credentials: true for allowed origins.
	AllowCredentials bool
}

// DefaultCORSConfig returns the header set used by the image upload endpoints.
func DefaultCORSConfig(policy *OriginPolicy) CORSConfig {
	return CORSConfig{
		Policy:           policy,
		AllowedMethods:   []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		MaxAge:           3600,
		AllowCredentials: true,
	}
}

// CORS returns middleware that sets Cross-Origin Resource Sharing headers on
// every response. Only the origin echo, Vary and credentials headers depend on
// the policy; the rest are always set. OPTIONS requests are answered with 204
// and an empty body. Disallowed origins are not rejected.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{http.MethodPost, http.MethodOptions}
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = []string{"Content-Type", "Authorization"}
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 3600
	}

	methods := strings.Join(cfg.AllowedMethods, ",")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if cfg.Policy.IsAllowed(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", headers)
			if exposed != "" {
				w.Header().Set("Access-Control-Expose-Headers", exposed)
			}
			w.Header().Set("Access-Control-Max-Age", maxAge)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
