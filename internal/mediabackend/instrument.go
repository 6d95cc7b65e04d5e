package mediabackend

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opUpload = "upload"
	opDelete = "delete"
	opPing   = "ping"

	outcomeSuccess  = "success"
	outcomeError    = "error"
	outcomeNotFound = "not_found"
)

var (
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_backend_requests_total",
			Help: "Total number of media backend calls",
		},
		[]string{"backend", "operation", "outcome"},
	)

	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_backend_request_duration_seconds",
			Help:    "Media backend call duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"backend", "operation"},
	)

	backendUploadBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_backend_upload_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"backend"},
	)
)

type instrumented struct {
	next Backend
}

// Instrument records Prometheus metrics for every call to b.
func Instrument(b Backend) Backend {
	return &instrumented{next: b}
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Upload(ctx context.Context, input *UploadInput) (*UploadResult, error) {
	start := time.Now()
	res, err := i.next.Upload(ctx, input)
	i.observe(opUpload, start, outcome(err))
	if err == nil {
		backendUploadBytes.WithLabelValues(i.next.Name()).Observe(float64(len(input.Data)))
	}
	return res, err
}

func (i *instrumented) Delete(ctx context.Context, publicID string) (*DeleteResult, error) {
	start := time.Now()
	res, err := i.next.Delete(ctx, publicID)
	o := outcome(err)
	if err == nil && res != nil && res.Result == ResultNotFound {
		o = outcomeNotFound
	}
	i.observe(opDelete, start, o)
	return res, err
}

func (i *instrumented) Ping(ctx context.Context) error {
	start := time.Now()
	err := i.next.Ping(ctx)
	i.observe(opPing, start, outcome(err))
	return err
}

func (i *instrumented) observe(op string, start time.Time, o string) {
	name := i.next.Name()
	backendRequestsTotal.WithLabelValues(name, op, o).Inc()
	backendRequestDuration.WithLabelValues(name, op).Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	if err != nil {
		return outcomeError
	}
	return outcomeSuccess
}
