// Package observe provides the observability primitives shared by typeassist:
// OpenTelemetry metrics, tracing helpers, trace-aware logging and the HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [InitProvider]
// bridges them to a Prometheus exporter so they can be scraped at /metrics.
// [DefaultMetrics] returns a package-level instance bound to the global
// meter provider; tests should use [NewMetrics] with their own
// [metric.MeterProvider].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all typeassist metrics.
const meterName = "github.com/MrWong99/typeassist"

// Metrics holds all OpenTelemetry instruments for the application. All
// fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms ---

	// RequestDuration tracks end-to-end CorrectText latency. Attributes:
	//   attribute.String("mode", ...), attribute.String("state", ...)
	RequestDuration metric.Float64Histogram

	// BackendDuration tracks the latency of single remote correction calls.
	// Attributes: attribute.String("status", ...)
	BackendDuration metric.Float64Histogram

	// --- Counters ---

	// CacheLookups counts cache reads. Attributes:
	//   attribute.String("cache", ...), attribute.String("result", "hit"|"miss")
	CacheLookups metric.Int64Counter

	// BackendRequests counts remote calls by outcome. Attributes:
	//   attribute.String("status", "ok"|"transient"|"fatal"|"cancelled")
	BackendRequests metric.Int64Counter

	// Retries counts backoff pauses taken before a repeated remote call.
	Retries metric.Int64Counter

	// Escalations counts chunks that qualified for remote correction.
	// Attributes: attribute.String("result", "remote"|"rate_limited"|"no_backend")
	Escalations metric.Int64Counter

	// LocalCorrections counts substitutions made without the backend.
	// Attributes: attribute.String("category", ...)
	LocalCorrections metric.Int64Counter

	// --- Gauges ---

	// ActiveRequests tracks CorrectText calls in progress.
	ActiveRequests metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds, spanning a cached
// local correction up to a slow multi-chunk remote rewrite.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] using mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.RequestDuration, err = m.Float64Histogram("typeassist.correction.duration",
		metric.WithDescription("Latency of a full text correction request."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.BackendDuration, err = m.Float64Histogram("typeassist.backend.duration",
		metric.WithDescription("Latency of a single remote correction call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.CacheLookups, err = m.Int64Counter("typeassist.cache.lookups",
		metric.WithDescription("Cache lookups by cache and result."),
	); err != nil {
		return nil, err
	}
	if met.BackendRequests, err = m.Int64Counter("typeassist.backend.requests",
		metric.WithDescription("Remote correction calls by status."),
	); err != nil {
		return nil, err
	}
	if met.Retries, err = m.Int64Counter("typeassist.backend.retries",
		metric.WithDescription("Remote correction retries."),
	); err != nil {
		return nil, err
	}
	if met.Escalations, err = m.Int64Counter("typeassist.correction.escalations",
		metric.WithDescription("Chunks that qualified for remote correction, by result."),
	); err != nil {
		return nil, err
	}
	if met.LocalCorrections, err = m.Int64Counter("typeassist.correction.local",
		metric.WithDescription("Local substitutions by category."),
	); err != nil {
		return nil, err
	}

	if met.ActiveRequests, err = m.Int64UpDownCounter("typeassist.correction.active",
		metric.WithDescription("Correction requests in progress."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("typeassist.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call from [otel.GetMeterProvider]. Panics if instrument creation
// fails, which does not happen with the global provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordRequest records the duration of one CorrectText call.
func (m *Metrics) RecordRequest(ctx context.Context, mode, state string, d time.Duration) {
	m.RequestDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(Attr("mode", mode), Attr("state", state)),
	)
}

// RecordBackendCall records one remote call's latency and outcome.
func (m *Metrics) RecordBackendCall(ctx context.Context, status string, d time.Duration) {
	attrs := metric.WithAttributes(Attr("status", status))
	m.BackendDuration.Record(ctx, d.Seconds(), attrs)
	m.BackendRequests.Add(ctx, 1, attrs)
}

// RecordCacheLookup records a hit or miss against the named cache.
func (m *Metrics) RecordCacheLookup(ctx context.Context, cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(Attr("cache", cache), Attr("result", result)))
}

// RecordRetry records one backoff pause.
func (m *Metrics) RecordRetry(ctx context.Context) {
	m.Retries.Add(ctx, 1)
}

// RecordEscalation records what happened to a chunk that qualified for
// remote correction.
func (m *Metrics) RecordEscalation(ctx context.Context, result string) {
	m.Escalations.Add(ctx, 1, metric.WithAttributes(Attr("result", result)))
}

// RecordLocalCorrection records one local substitution.
func (m *Metrics) RecordLocalCorrection(ctx context.Context, category string) {
	m.LocalCorrections.Add(ctx, 1, metric.WithAttributes(Attr("category", category)))
}
