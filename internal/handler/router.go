// Package handler assembles the HTTP surface of the media proxy.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mxansari007/pearlbloom-admin/internal/config"
	"github.com/mxansari007/pearlbloom-admin/internal/handler/callable"
	httphandler "github.com/mxansari007/pearlbloom-admin/internal/handler/http"
	"github.com/mxansari007/pearlbloom-admin/pkg/health"
	"github.com/mxansari007/pearlbloom-admin/pkg/httputil"
	pkgmiddleware "github.com/mxansari007/pearlbloom-admin/pkg/middleware"
)

const serviceName = "media-proxy"

// ImageService is what both bindings need from the service layer.
type ImageService interface {
	httphandler.ImageService
}

// NewRouter creates a chi router with observability middleware, health
// endpoints, and both bindings of the image operations.
func NewRouter(cfg *config.Config, images ImageService, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack (applied in order).
	r.Use(pkgmiddleware.Recovery(logger))
	r.Use(pkgmiddleware.RequestLogging(logger, "/health/live", "/health/ready", "/metrics"))
	r.Use(pkgmiddleware.PrometheusMetrics(serviceName))
	r.Use(pkgmiddleware.Tracing(serviceName))
	r.Use(pkgmiddleware.RequestLogger(logger))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	if cfg.PprofEnabled {
		pkgmiddleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)
	}

	// chi answers methods outside its routing table before any route
	// middleware runs, so those requests are handed to the bound handler here.
	bound := make(map[string]http.Handler)
	mount := func(mws chi.Middlewares, routes map[string]http.HandlerFunc) {
		for path, fn := range routes {
			h := mws.HandlerFunc(fn)
			r.Handle(path, h)
			bound[path] = h
		}
	}
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		if h, ok := bound[req.URL.Path]; ok {
			h.ServeHTTP(w, req)
			return
		}
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	rateLimit := pkgmiddleware.RateLimitConfig{
		RPS:            cfg.RateLimitRPS,
		Burst:          cfg.RateLimitBurst,
		TrustedProxies: cfg.RateLimitTrustedProxies,
	}

	// Plain HTTP endpoints behind the origin allow-list.
	policy := pkgmiddleware.NewOriginPolicy(cfg.Origins())
	logger.Info("http binding origin policy", slog.Any("origins", policy.Origins()))

	httpChain := chi.Chain(
		pkgmiddleware.RecoveryFunc(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
			httputil.WriteErrorMessage(w, http.StatusInternalServerError, "Server error")
		}),
		pkgmiddleware.CORS(pkgmiddleware.DefaultCORSConfig(policy)),
	)
	if cfg.RateLimitRPS > 0 {
		httpChain = append(httpChain, pkgmiddleware.RateLimit(rateLimit, logger, nil))
	}
	mount(httpChain, httphandler.NewImageHandler(images, cfg.MaxRequestBytes, logger).Routes())

	// Callable endpoints with their own envelope and permissive CORS.
	callableChain := chi.Chain(
		pkgmiddleware.RecoveryFunc(logger, callable.WritePanic),
		callable.CORS(),
	)
	if cfg.RateLimitRPS > 0 {
		callableChain = append(callableChain, pkgmiddleware.RateLimit(rateLimit, logger, callable.RejectRateLimited))
	}
	callableChain = append(callableChain,
		pkgmiddleware.Auth(pkgmiddleware.AuthConfig{
			Validate: pkgmiddleware.HMACValidator(cfg.JWTSecret),
			Required: cfg.CallableRequireAuth,
			Reject:   callable.RejectUnauthenticated,
		}),
		// Rebuild the request logger so it picks up the caller's user_id.
		pkgmiddleware.RequestLogger(logger),
	)
	mount(callableChain, callable.NewHandler(images, cfg.MaxRequestBytes, logger).Routes())

	return r
}
