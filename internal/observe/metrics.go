// Package observe provides application-wide observability primitives for
// Shruti: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Shruti metrics.
const meterName = "github.com/brac-ds/shruti"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// AcousticDuration tracks acoustic model inference latency.
	AcousticDuration metric.Float64Histogram

	// ResolveDuration tracks resolution pipeline latency, excluding
	// acoustic inference.
	ResolveDuration metric.Float64Histogram

	// --- Counters ---

	// Resolutions counts resolved hypotheses. Use with attribute:
	//   attribute.String("method", ...)
	Resolutions metric.Int64Counter

	// AcousticRequests counts acoustic provider calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	AcousticRequests metric.Int64Counter

	// CorrectionSubmissions counts correction submissions. Use with attribute:
	//   attribute.String("status", ...) — "accepted" or "rejected"
	CorrectionSubmissions metric.Int64Counter

	// --- Distributions ---

	// CandidateCount tracks how many candidates the fallback path generated
	// per low-confidence hypothesis.
	CandidateCount metric.Int64Histogram

	// --- Gauges ---

	// ActiveRequests tracks in-flight transcription requests.
	ActiveRequests metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The upper
// buckets cover native whisper inference on CPU-only hosts.
var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// candidateBuckets covers the bounded candidate set size.
var candidateBuckets = []float64{1, 2, 3, 4, 5, 6, 7, 8}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.AcousticDuration, err = m.Float64Histogram("shruti.acoustic.duration",
		metric.WithDescription("Latency of acoustic model inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ResolveDuration, err = m.Float64Histogram("shruti.resolve.duration",
		metric.WithDescription("Latency of the resolution pipeline, excluding acoustic inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Resolutions, err = m.Int64Counter("shruti.resolutions",
		metric.WithDescription("Total resolved hypotheses by resolution method."),
	); err != nil {
		return nil, err
	}
	if met.AcousticRequests, err = m.Int64Counter("shruti.acoustic.requests",
		metric.WithDescription("Total acoustic provider requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.CorrectionSubmissions, err = m.Int64Counter("shruti.corrections.submissions",
		metric.WithDescription("Total correction submissions by acceptance status."),
	); err != nil {
		return nil, err
	}

	// Distributions.
	if met.CandidateCount, err = m.Int64Histogram("shruti.resolve.candidates",
		metric.WithDescription("Candidates generated per low-confidence hypothesis."),
		metric.WithExplicitBucketBoundaries(candidateBuckets...),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveRequests, err = m.Int64UpDownCounter("shruti.active_requests",
		metric.WithDescription("Number of in-flight transcription requests."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("shruti.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordResolution records one resolved hypothesis with its method and the
// size of the candidate set the fallback path generated (0 on the direct
// path).
func (m *Metrics) RecordResolution(ctx context.Context, method string, candidates int) {
	m.Resolutions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("method", method)),
	)
	if candidates > 0 {
		m.CandidateCount.Record(ctx, int64(candidates))
	}
}

// RecordAcousticRequest records one acoustic provider call with the standard
// attribute set.
func (m *Metrics) RecordAcousticRequest(ctx context.Context, provider, status string) {
	m.AcousticRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

// RecordCorrection records one correction submission outcome.
func (m *Metrics) RecordCorrection(ctx context.Context, accepted bool) {
	status := "rejected"
	if accepted {
		status = "accepted"
	}
	m.CorrectionSubmissions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
