package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mxansari007/pearlbloom-admin/internal/config"
	"github.com/mxansari007/pearlbloom-admin/internal/event"
	"github.com/mxansari007/pearlbloom-admin/internal/handler"
	"github.com/mxansari007/pearlbloom-admin/internal/handler/callable"
	"github.com/mxansari007/pearlbloom-admin/internal/mediabackend"
	"github.com/mxansari007/pearlbloom-admin/internal/mediabackend/cloudinarybackend"
	"github.com/mxansari007/pearlbloom-admin/internal/mediabackend/memory"
	"github.com/mxansari007/pearlbloom-admin/internal/mediabackend/miniobackend"
	"github.com/mxansari007/pearlbloom-admin/internal/service"
	"github.com/mxansari007/pearlbloom-admin/pkg/health"
	pkgkafka "github.com/mxansari007/pearlbloom-admin/pkg/kafka"
	"github.com/mxansari007/pearlbloom-admin/pkg/tracing"
)

const serviceName = "media-proxy"

// App wires together all dependencies and runs the media proxy.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TracingSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Media backend, decorated with metrics and an optional breaker.
	backend, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	backend = mediabackend.Instrument(backend)
	if cfg.BreakerEnabled {
		backend = mediabackend.WithCircuitBreaker(backend, mediabackend.DefaultBreakerConfig(), logger)
	}
	logger.Info("media backend initialized",
		slog.String("backend", backend.Name()),
		slog.String("folder", cfg.UploadFolder),
		slog.Bool("breaker", cfg.BreakerEnabled),
	)

	if cfg.Backend == config.BackendCloudinary {
		warnMissingSecrets(logger, callable.RequiredSecrets)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("media_backend", backend.Ping)

	// Optional Kafka producer for image lifecycle events.
	var (
		producer  *pkgkafka.Producer
		publisher event.Publisher = event.Noop{}
	)
	if cfg.EventsEnabled() {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(producer, logger)
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	imageService := service.NewImageService(backend, publisher, cfg.UploadFolder, logger)

	// HTTP router.
	router := handler.NewRouter(cfg, imageService, healthHandler, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

func newBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (mediabackend.Backend, error) {
	switch cfg.Backend {
	case config.BackendMinio:
		b, err := miniobackend.New(ctx, miniobackend.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to minio: %w", err)
		}
		return b, nil
	case config.BackendMemory:
		return memory.New(cfg.BaseURL), nil
	default:
		return cloudinarybackend.New(mediabackend.Credentials{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
		}, logger), nil
	}
}

// warnMissingSecrets logs the names of required secrets absent from the
// environment. Startup continues; the backend reports its own auth errors.
func warnMissingSecrets(logger *slog.Logger, names []string) {
	var missing []string
	for _, name := range names {
		if strings.TrimSpace(os.Getenv(name)) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		logger.Warn("required secrets are not set", slog.Any("missing", missing))
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Kafka producer (flush pending events)
// 3. Tracer (flush pending spans)
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
