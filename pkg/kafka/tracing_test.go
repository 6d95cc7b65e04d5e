package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func useTraceContext(t *testing.T) {
	t.Helper()
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })
}

func uploadSpanContext(t *testing.T) trace.SpanContext {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
}

func header(msg kafka.Message, key string) string {
	return NewHeaderCarrier(&msg.Headers).Get(key)
}

func TestMessage_CarriesUploadTraceToConsumers(t *testing.T) {
	useTraceContext(t)
	sc := uploadSpanContext(t)
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), sc)

	event, err := NewEvent("image.uploaded", "products/abc", "image", "mediaproxy", nil)
	require.NoError(t, err)

	msg, err := Message(ctx, "media.image.uploaded", event)
	require.NoError(t, err)

	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", header(msg, "traceparent"))

	consumerCtx := otel.GetTextMapPropagator().Extract(context.Background(), NewHeaderCarrier(&msg.Headers))
	got := trace.SpanContextFromContext(consumerCtx)
	assert.Equal(t, sc.TraceID(), got.TraceID())
	assert.Equal(t, sc.SpanID(), got.SpanID())
}

func TestMessage_NoSpan_NoTraceparent(t *testing.T) {
	useTraceContext(t)

	event, err := NewEvent("image.deleted", "products/abc", "image", "mediaproxy", nil)
	require.NoError(t, err)

	msg, err := Message(context.Background(), "media.image.deleted", event)
	require.NoError(t, err)

	assert.Empty(t, header(msg, "traceparent"))
	assert.ElementsMatch(t, []string{"event_type", "source"}, NewHeaderCarrier(&msg.Headers).Keys())
}

func TestMessage_TraceHeadersSitBesideEventHeaders(t *testing.T) {
	useTraceContext(t)
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), uploadSpanContext(t))

	event, err := NewEvent("image.uploaded", "products/abc", "image", "mediaproxy", nil)
	require.NoError(t, err)
	event.WithCorrelationID("req-42")

	msg, err := Message(ctx, "media.image.uploaded", event)
	require.NoError(t, err)

	assert.Equal(t, "image.uploaded", header(msg, "event_type"))
	assert.Equal(t, "mediaproxy", header(msg, "source"))
	assert.Equal(t, "req-42", header(msg, "correlation_id"))
	assert.NotEmpty(t, header(msg, "traceparent"))
	assert.Len(t, msg.Headers, 4)
}

func TestHeaderCarrier_SetReplacesRetriedTraceparent(t *testing.T) {
	headers := []kafka.Header{
		{Key: "event_type", Value: []byte("image.deleted")},
		{Key: "traceparent", Value: []byte("00-aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa-bbbbbbbbbbbbbbbb-01")},
	}
	carrier := NewHeaderCarrier(&headers)

	carrier.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	require.Len(t, headers, 2)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", carrier.Get("traceparent"))
	assert.Equal(t, "image.deleted", carrier.Get("event_type"))
}
