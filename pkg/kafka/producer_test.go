package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type imagePayload struct {
	PublicID string `json:"public_id"`
	Bytes    int    `json:"bytes"`
}

func TestNewEvent_Fields(t *testing.T) {
	data := imagePayload{PublicID: "products/abc", Bytes: 5}
	event, err := NewEvent("image.uploaded", "products/abc", "image", "mediaproxy", data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "image.uploaded", event.EventType)
	assert.Equal(t, "products/abc", event.AggregateID)
	assert.Equal(t, "image", event.AggregateType)
	assert.Equal(t, "mediaproxy", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)
	assert.NotNil(t, event.Metadata)

	var got imagePayload
	require.NoError(t, event.UnmarshalData(&got))
	assert.Equal(t, data, got)
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("image.uploaded", "x", "image", "mediaproxy", make(chan int))
	require.Error(t, err)
}

func TestEvent_Chaining(t *testing.T) {
	event, err := NewEvent("image.deleted", "x", "image", "mediaproxy", nil)
	require.NoError(t, err)

	result := event.WithCorrelationID("corr-xyz").WithMetadata("backend", "memory")
	assert.Same(t, event, result)
	assert.Equal(t, "corr-xyz", event.CorrelationID)
	assert.Equal(t, "memory", event.Metadata["backend"])
}

func TestEvent_WithMetadata_NilMap(t *testing.T) {
	event := &Event{EventID: "id"}
	event.WithMetadata("key", "value")
	assert.Equal(t, "value", event.Metadata["key"])
}

func TestUnmarshalEvent_RoundTrip(t *testing.T) {
	original, err := NewEvent("image.uploaded", "products/abc", "image", "mediaproxy", imagePayload{PublicID: "products/abc"})
	require.NoError(t, err)
	original.CorrelationID = "corr-abc"

	b, err := original.Marshal()
	require.NoError(t, err)

	restored, err := UnmarshalEvent(b)
	require.NoError(t, err)
	assert.Equal(t, original.EventID, restored.EventID)
	assert.Equal(t, original.CorrelationID, restored.CorrelationID)
	assert.JSONEq(t, string(original.Data), string(restored.Data))
}

func TestUnmarshalEvent_Invalid(t *testing.T) {
	_, err := UnmarshalEvent([]byte(`{broken json`))
	require.Error(t, err)
	_, err = UnmarshalEvent([]byte{})
	require.Error(t, err)

	var target map[string]string
	require.Error(t, (&Event{Data: json.RawMessage(`nope`)}).UnmarshalData(&target))
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "pearlbloom", TopicPrefix)
	assert.Equal(t, "pearlbloom.media.image.uploaded", Topic("media", "image.uploaded"))
}

func TestDefaultProducerConfig(t *testing.T) {
	brokers := []string{"broker1:9092", "broker2:9092"}
	cfg := DefaultProducerConfig(brokers)

	assert.Equal(t, brokers, cfg.Brokers)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 10*time.Millisecond, cfg.BatchTimeout)
	assert.False(t, cfg.Async)
}

func TestMessage_HeadersAndKey(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	event, err := NewEvent("image.uploaded", "products/abc", "image", "mediaproxy", nil)
	require.NoError(t, err)
	event.WithCorrelationID("corr-1")

	msg, err := Message(ctx, "pearlbloom.media.image.uploaded", event)
	require.NoError(t, err)

	assert.Equal(t, "pearlbloom.media.image.uploaded", msg.Topic)
	assert.Equal(t, []byte("products/abc"), msg.Key)

	carrier := NewHeaderCarrier(&msg.Headers)
	assert.Equal(t, "image.uploaded", carrier.Get("event_type"))
	assert.Equal(t, "mediaproxy", carrier.Get("source"))
	assert.Equal(t, "corr-1", carrier.Get("correlation_id"))
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", carrier.Get("traceparent"))
}

func TestNewProducer_CreatesInstance(t *testing.T) {
	p := NewProducer(DefaultProducerConfig([]string{"localhost:19092"}), nil)
	require.NotNil(t, p)
	assert.Equal(t, []string{"localhost:19092"}, p.brokers)
	assert.NoError(t, p.Close())
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers configured")
}
