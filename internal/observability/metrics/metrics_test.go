package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("endpoint", "/api/checkout"),
		attribute.String("principal_id", "u_123"),
		attribute.String("category", "trending"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "principal_id" {
			t.Fatalf("expected principal_id to be dropped")
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordWebhookEvent(context.Background(), "stripe", "price.updated", "applied")
	m.RecordCheckoutSession(context.Background(), "checkout", "ready")
	m.RecordRateLimitDenied(context.Background(), "/api/checkout", "exhausted")
}

func TestNewRegistersInstruments(t *testing.T) {
	m, err := New(Config{ServiceName: "streamgate"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordCatalogFetch(context.Background(), "trending", "cache")
	m.RecordWatchlistChange(context.Background(), "add")
}
