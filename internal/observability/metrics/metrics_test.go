package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("direction", "up"),
		attribute.String("formation_id", "456"),
		attribute.String("result", "ok"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "formation_id" {
			t.Fatalf("formation_id must not be used as a label")
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordFormationImport(context.Background(), "ok")
	m.RecordModuleReorder(context.Background(), "up", "ok")
	m.RecordEnrichmentWarning(context.Background(), "organizations")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordBuildLink(context.Background(), "formation", "link")
}
