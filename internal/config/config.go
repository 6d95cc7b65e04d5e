package config

import (
	"fmt"
	"strings"
	"time"

	pkgconfig "github.com/mxansari007/pearlbloom-admin/pkg/config"
)

// Supported media backends.
const (
	BackendCloudinary = "cloudinary"
	BackendMinio      = "minio"
	BackendMemory     = "memory"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds all configuration for the media proxy.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// HTTP server
	HTTPPort        int           `env:"MEDIA_HTTP_PORT" envDefault:"8011"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MaxRequestBytes int64         `env:"MEDIA_MAX_REQUEST_BYTES" envDefault:"16777216"`

	// Media backend
	Backend      string `env:"MEDIA_BACKEND" envDefault:"cloudinary"`
	UploadFolder string `env:"MEDIA_UPLOAD_FOLDER" envDefault:"products"`
	// BaseURL prefixes URLs handed out by the memory backend.
	BaseURL        string `env:"MEDIA_BASE_URL" envDefault:"http://localhost:8011/media"`
	BreakerEnabled bool   `env:"MEDIA_BREAKER_ENABLED" envDefault:"false"`

	// Cloudinary
	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`

	// MinIO / S3-compatible storage
	MinioEndpoint  string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET" envDefault:"pearlbloom-media"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
	MinioPublicURL string `env:"MINIO_PUBLIC_URL"`

	// Origin policy
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`
	GCPProject     string `env:"GCP_PROJECT"`
	GCloudProject  string `env:"GCLOUD_PROJECT"`

	// Callable auth gate
	CallableRequireAuth bool   `env:"CALLABLE_REQUIRE_AUTH" envDefault:"false"`
	JWTSecret           string `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`

	// Rate limiting on the HTTP binding; 0 disables it.
	// X-Forwarded-For is only read from peers inside RATE_LIMIT_TRUSTED_PROXIES.
	RateLimitRPS            float64  `env:"RATE_LIMIT_RPS" envDefault:"0"`
	RateLimitBurst          int      `env:"RATE_LIMIT_BURST" envDefault:"20"`
	RateLimitTrustedProxies []string `env:"RATE_LIMIT_TRUSTED_PROXIES" envSeparator:","`

	// Kafka; events are disabled when no brokers are set.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Tracing
	TracingEnabled    bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint      string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampleRate float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`

	// Profiling
	PprofEnabled      bool     `env:"PPROF_ENABLED" envDefault:"false"`
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load media config: %w", err)
	}
	return finish(cfg)
}

// LoadFrom reads configuration from environ instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadFrom(cfg, environ); err != nil {
		return nil, fmt.Errorf("load media config: %w", err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.KafkaBrokers = compact(cfg.KafkaBrokers)
	cfg.PprofAllowedCIDRs = compact(cfg.PprofAllowedCIDRs)
	cfg.RateLimitTrustedProxies = compact(cfg.RateLimitTrustedProxies)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendCloudinary, BackendMinio, BackendMemory:
	default:
		return fmt.Errorf("MEDIA_BACKEND must be one of %s, %s, %s; got %q",
			BackendCloudinary, BackendMinio, BackendMemory, c.Backend)
	}
	if c.MaxRequestBytes <= 0 {
		return fmt.Errorf("MEDIA_MAX_REQUEST_BYTES must be positive")
	}
	if c.CallableRequireAuth && c.Environment != "development" && c.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be changed from default value in %s environment", c.Environment)
	}
	return nil
}

// Project returns the hosting project id, preferring GCP_PROJECT.
func (c *Config) Project() string {
	if p := strings.TrimSpace(c.GCPProject); p != "" {
		return p
	}
	return strings.TrimSpace(c.GCloudProject)
}

// Origins returns the allow-list for the HTTP binding. A non-blank
// ALLOWED_ORIGINS wins; otherwise the local dev servers and the project's
// hosting domains are used.
func (c *Config) Origins() []string {
	if strings.TrimSpace(c.AllowedOrigins) != "" {
		return compact(strings.Split(c.AllowedOrigins, ","))
	}

	origins := []string{"http://localhost:5173", "http://localhost:3000"}
	if p := c.Project(); p != "" {
		origins = append(origins,
			"https://"+p+".web.app",
			"https://"+p+".firebaseapp.com",
		)
	}
	return origins
}

// EventsEnabled reports whether image lifecycle events are published.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// compact trims every entry and drops the empty ones.
func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
