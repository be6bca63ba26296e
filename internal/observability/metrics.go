package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	meterScope         = "github.com/formbricks/callhub/internal/observability"
	defaultServiceName = "callhub"
	cardinalityLimit   = 2000
)

// latencyHistogramBoundaries are Prometheus-style buckets (seconds) for request and upstream duration histograms.
var latencyHistogramBoundaries = []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Metrics is the single metrics interface for callhub (HTTP, webhooks, upstream calls).
// Call sites accept a nil Metrics when metrics are disabled.
type Metrics interface {
	RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration)
	RecordRequestBodyTooLarge(ctx context.Context)
	RecordWebhookEvent(ctx context.Context, eventType string)
	RecordWebhookRejected(ctx context.Context, reason string)
	RecordUpstreamRequest(ctx context.Context, operation, outcome string, duration time.Duration)
}

// MeterProviderShutdown is the subset of the SDK MeterProvider needed for shutdown.
type MeterProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// MeterProviderConfig holds configuration for creating the MeterProvider and metrics.
type MeterProviderConfig struct {
	// ServiceName is used in the resource (default: callhub).
	ServiceName string
}

// NewMeterProvider creates a MeterProvider with Prometheus exporter and returns the provider,
// an HTTP handler for /metrics, and Metrics that use the provider's Meter.
// Caller must call provider.Shutdown on exit.
func NewMeterProvider(_ context.Context, cfg MeterProviderConfig) (provider MeterProviderShutdown, metricsHandler http.Handler, metrics Metrics, err error) {
	res := newResource(cfg.ServiceName)

	reg := prometheus.NewRegistry()

	exporter, err := prometheusexporter.New(
		prometheusexporter.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
		sdkmetric.WithCardinalityLimit(cardinalityLimit),
		sdkmetric.WithView(durationViews()...),
	)

	metrics, err = NewMetrics(mp.Meter(meterScope))
	if err != nil {
		if shutdownErr := mp.Shutdown(context.Background()); shutdownErr != nil {
			err = fmt.Errorf("%w (shutdown: %w)", err, shutdownErr)
		}

		return nil, nil, nil, err
	}

	metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	return mp, metricsHandler, metrics, nil
}

// newResource describes this process for both metrics and traces.
func newResource(serviceName string) *resource.Resource {
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	)
}

// durationViews applies second-based buckets to every duration histogram.
func durationViews() []sdkmetric.View {
	names := []string{MetricNameRequestDuration, MetricNameUpstreamDuration}

	views := make([]sdkmetric.View, 0, len(names))
	for _, name := range names {
		views = append(views, sdkmetric.NewView(
			sdkmetric.Instrument{Name: name},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: latencyHistogramBoundaries}},
		))
	}

	return views
}

// NewMetrics creates all callhub instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	m, err := newMetricsFromMeter(meter)
	if err != nil {
		return nil, fmt.Errorf("create metrics instruments: %w", err)
	}

	return m, nil
}

func newMetricsFromMeter(meter metric.Meter) (*metricsImpl, error) {
	requestCount, err := meter.Int64Counter(
		MetricNameRequestCount,
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameRequestCount, err)
	}

	requestDuration, err := meter.Float64Histogram(
		MetricNameRequestDuration,
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameRequestDuration, err)
	}

	requestBodyTooLarge, err := meter.Int64Counter(
		MetricNameRequestBodyTooLarge,
		metric.WithDescription("Requests rejected because the body exceeded the configured limit (413)"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameRequestBodyTooLarge, err)
	}

	webhookEvents, err := meter.Int64Counter(
		MetricNameWebhookEvents,
		metric.WithDescription("Verified webhook events dispatched per event type"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameWebhookEvents, err)
	}

	webhookRejected, err := meter.Int64Counter(
		MetricNameWebhookRejected,
		metric.WithDescription("Webhook requests rejected before dispatch"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameWebhookRejected, err)
	}

	upstreamRequests, err := meter.Int64Counter(
		MetricNameUpstreamRequests,
		metric.WithDescription("Calls to the Retell API by operation and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameUpstreamRequests, err)
	}

	upstreamDuration, err := meter.Float64Histogram(
		MetricNameUpstreamDuration,
		metric.WithDescription("Retell API call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameUpstreamDuration, err)
	}

	return &metricsImpl{
		requestCount:        requestCount,
		requestDuration:     requestDuration,
		requestBodyTooLarge: requestBodyTooLarge,
		webhookEvents:       webhookEvents,
		webhookRejected:     webhookRejected,
		upstreamRequests:    upstreamRequests,
		upstreamDuration:    upstreamDuration,
	}, nil
}

type metricsImpl struct {
	requestCount        metric.Int64Counter
	requestDuration     metric.Float64Histogram
	requestBodyTooLarge metric.Int64Counter
	webhookEvents       metric.Int64Counter
	webhookRejected     metric.Int64Counter
	upstreamRequests    metric.Int64Counter
	upstreamDuration    metric.Float64Histogram
}

func (m *metricsImpl) RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration) {
	attrs := attribute.NewSet(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status_class", statusClass),
	)
	m.requestCount.Add(ctx, 1, metric.WithAttributeSet(attrs))

	durAttrs := attribute.NewSet(
		attribute.String("method", method),
		attribute.String("route", route),
	)
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributeSet(durAttrs))
}

func (m *metricsImpl) RecordRequestBodyTooLarge(ctx context.Context) {
	m.requestBodyTooLarge.Add(ctx, 1)
}

func (m *metricsImpl) RecordWebhookEvent(ctx context.Context, eventType string) {
	eventType = NormalizeEventType(eventType)
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrEventType, eventType)))
}

func (m *metricsImpl) RecordWebhookRejected(ctx context.Context, reason string) {
	reason = NormalizeReason(reason, AllowedRejectReasons)
	m.webhookRejected.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrReason, reason)))
}

func (m *metricsImpl) RecordUpstreamRequest(ctx context.Context, operation, outcome string, duration time.Duration) {
	attrs := attribute.NewSet(
		attribute.String(AttrOperation, NormalizeReason(operation, AllowedOperations)),
		attribute.String(AttrOutcome, NormalizeReason(outcome, AllowedOutcomes)),
	)
	m.upstreamRequests.Add(ctx, 1, metric.WithAttributeSet(attrs))
	m.upstreamDuration.Record(ctx, duration.Seconds(), metric.WithAttributeSet(attrs))
}
