package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	formationImports   metric.Int64Counter
	formationExports   metric.Int64Counter
	moduleReorders     metric.Int64Counter
	buildLinks         metric.Int64Counter
	enrichmentWarnings metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "formationdesk"
	}
	meter := provider.Meter(name)

	formationImports, err := meter.Int64Counter("formationdesk_formation_imports_total")
	if err != nil {
		return nil, err
	}
	formationExports, err := meter.Int64Counter("formationdesk_formation_exports_total")
	if err != nil {
		return nil, err
	}
	moduleReorders, err := meter.Int64Counter("formationdesk_module_reorders_total")
	if err != nil {
		return nil, err
	}
	buildLinks, err := meter.Int64Counter("formationdesk_build_links_total")
	if err != nil {
		return nil, err
	}
	enrichmentWarnings, err := meter.Int64Counter("formationdesk_enrichment_warnings_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		formationImports:   formationImports,
		formationExports:   formationExports,
		moduleReorders:     moduleReorders,
		buildLinks:         buildLinks,
		enrichmentWarnings: enrichmentWarnings,
	}, nil
}

// RecordFormationImport counts import attempts by outcome.
func (m *Metrics) RecordFormationImport(ctx context.Context, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("result", strings.TrimSpace(result)))
	m.formationImports.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordFormationExport(ctx context.Context) {
	if m == nil {
		return
	}
	m.formationExports.Add(ctx, 1)
}

// RecordModuleReorder counts reorder requests by direction and outcome.
func (m *Metrics) RecordModuleReorder(ctx context.Context, direction, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("direction", strings.TrimSpace(direction)),
		attribute.String("result", strings.TrimSpace(result)),
	)
	m.moduleReorders.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBuildLink counts build association changes by target kind (formation, training).
func (m *Metrics) RecordBuildLink(ctx context.Context, target, action string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("target", strings.TrimSpace(target)),
		attribute.String("action", strings.TrimSpace(action)),
	)
	m.buildLinks.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordEnrichmentWarning counts lookups that degraded to a default value.
func (m *Metrics) RecordEnrichmentWarning(ctx context.Context, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.enrichmentWarnings.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"result":      {},
	"direction":   {},
	"target":      {},
	"action":      {},
	"source":      {},
	"status_code": {},
	"route":       {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
