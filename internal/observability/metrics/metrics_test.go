package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("state", "PROMPT_REQUIRED"),
		attribute.String("booking_id", "456"),
		attribute.String("guest_mobile", "+919800000000"),
		attribute.String("outcome", "success"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "state" || attrs[1].Key != "outcome" {
		t.Fatalf("unexpected attributes retained: %v", attrs)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordPromptCheck(context.Background(), "TOO_EARLY")
	m.RecordConfirm(context.Background(), "success")
	m.RecordFallback(context.Background(), "waiting")
	m.RecordNotification(context.Background(), "log", "delivered")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	m.RecordPromptCheck(context.Background(), "PROMPT_REQUIRED")
}
