package mediabackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// ErrBreakerOpen is returned without calling the backend while the breaker is open.
var ErrBreakerOpen = gobreaker.ErrOpenState

// BreakerConfig holds configuration for the backend circuit breaker.
type BreakerConfig struct {
	// MaxRequests is the number of probe calls allowed while half-open.
	MaxRequests uint32
	// Interval clears the closed-state counts; 0 never clears them.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// FailureRatio trips the breaker once MinRequests calls have been seen.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig returns the settings used when the breaker is enabled.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

var breakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "media_backend_circuit_breaker_state",
		Help: "Current state of the media backend circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"backend"},
)

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

type breaker struct {
	next Backend
	cb   *gobreaker.CircuitBreaker[any]
}

// WithCircuitBreaker fails calls fast while the backend keeps failing. Calls
// are never retried. Ping bypasses the breaker so readiness reflects the
// backend itself.
func WithCircuitBreaker(b Backend, cfg BreakerConfig, logger *slog.Logger) Backend {
	name := b.Name()
	settings := gobreaker.Settings{
		Name:        "media-backend-" + name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(breakerName string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", breakerName),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}
	breakerState.WithLabelValues(name).Set(0)

	return &breaker{next: b, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func (b *breaker) Name() string { return b.next.Name() }

func (b *breaker) Upload(ctx context.Context, input *UploadInput) (*UploadResult, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.Upload(ctx, input)
	})
	if err != nil {
		return nil, b.wrap(err)
	}
	return v.(*UploadResult), nil
}

func (b *breaker) Delete(ctx context.Context, publicID string) (*DeleteResult, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.Delete(ctx, publicID)
	})
	if err != nil {
		return nil, b.wrap(err)
	}
	return v.(*DeleteResult), nil
}

func (b *breaker) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

func (b *breaker) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("media backend %s unavailable: %w", b.next.Name(), err)
	}
	return err
}
