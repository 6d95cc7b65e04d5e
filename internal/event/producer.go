package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/mxansari007/pearlbloom-admin/pkg/kafka"
	"github.com/mxansari007/pearlbloom-admin/pkg/logger"
)

// Kafka topics for image lifecycle events.
var (
	TopicImageUploaded = pkgkafka.Topic("media", "image.uploaded")
	TopicImageDeleted  = pkgkafka.Topic("media", "image.deleted")
)

// AggregateTypeImage is the aggregate type carried in every image event.
const AggregateTypeImage = "image"

// SourceMediaProxy identifies events originating from this service.
const SourceMediaProxy = "media-proxy"

// ImageUploadedData is the payload for an image.uploaded event.
type ImageUploadedData struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
	Format   string `json:"format"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Bytes    int    `json:"bytes"`
	Backend  string `json:"backend"`
}

// ImageDeletedData is the payload for an image.deleted event.
type ImageDeletedData struct {
	PublicID string `json:"public_id"`
	Result   string `json:"result"`
	Backend  string `json:"backend"`
}

// Publisher emits image lifecycle events. Failures are reported to the caller
// but must never fail the operation that triggered them.
type Publisher interface {
	PublishImageUploaded(ctx context.Context, data ImageUploadedData) error
	PublishImageDeleted(ctx context.Context, data ImageDeletedData) error
}

// Writer is the part of pkg/kafka.Producer the publisher needs.
type Writer interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes image events to Kafka.
type Producer struct {
	writer Writer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(writer Writer, logger *slog.Logger) *Producer {
	return &Producer{
		writer: writer,
		logger: logger,
	}
}

// PublishImageUploaded publishes an image.uploaded event.
func (p *Producer) PublishImageUploaded(ctx context.Context, data ImageUploadedData) error {
	if err := p.publish(ctx, TopicImageUploaded, data.PublicID, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published image.uploaded event",
		slog.String("public_id", data.PublicID),
	)
	return nil
}

// PublishImageDeleted publishes an image.deleted event.
func (p *Producer) PublishImageDeleted(ctx context.Context, data ImageDeletedData) error {
	if err := p.publish(ctx, TopicImageDeleted, data.PublicID, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published image.deleted event",
		slog.String("public_id", data.PublicID),
		slog.String("result", data.Result),
	)
	return nil
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, AggregateTypeImage, SourceMediaProxy, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.writer.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

// Noop discards every event. It is used when no brokers are configured.
type Noop struct{}

func (Noop) PublishImageUploaded(context.Context, ImageUploadedData) error { return nil }

func (Noop) PublishImageDeleted(context.Context, ImageDeletedData) error { return nil }
