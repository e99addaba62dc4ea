// Package observe provides application-wide observability primitives for
// callaudit: OpenTelemetry metrics, distributed tracing, structured logging,
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

// meterName is the instrumentation scope name used for all callaudit metrics.
const meterName = "github.com/sonavox/callaudit"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// AnalysisDuration tracks end-to-end audio analysis latency per call.
	AnalysisDuration metric.Float64Histogram

	// AgentTurnLatency tracks how long the candidate agent takes to produce
	// one turn during a simulation.
	AgentTurnLatency metric.Float64Histogram

	// SimulationDuration tracks wall-clock time of one full simulated
	// conversation.
	SimulationDuration metric.Float64Histogram

	// --- Counters ---

	// LLMRequests counts LLM API calls. Use with attributes:
	//   attribute.String("role", ...), attribute.String("family", ...), attribute.String("status", ...)
	LLMRequests metric.Int64Counter

	// Simulations counts finished simulations. Use with attributes:
	//   attribute.String("agent_id", ...), attribute.String("status", ...)
	Simulations metric.Int64Counter

	// DegradedJudgements counts judge evaluations that fell back to default
	// scores because the verdict could not be parsed.
	DegradedJudgements metric.Int64Counter

	// --- Error counters ---

	// LLMErrors counts LLM call failures. Use with attributes:
	//   attribute.String("role", ...), attribute.String("family", ...)
	LLMErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSimulations tracks the number of simulations currently running.
	ActiveSimulations metric.Int64UpDownCounter

	// ActiveComparisons tracks the number of comparison jobs in flight.
	ActiveComparisons metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// per-turn and per-call latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// conversationBuckets defines histogram bucket boundaries (in seconds) for
// whole-conversation durations, which run far longer than single turns.
var conversationBuckets = []float64{
	1, 5, 10, 30, 60, 120, 300, 600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.AnalysisDuration, err = m.Float64Histogram("callaudit.analysis.duration",
		metric.WithDescription("End-to-end audio analysis latency per call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AgentTurnLatency, err = m.Float64Histogram("callaudit.agent_turn.latency",
		metric.WithDescription("Candidate agent response latency per simulated turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SimulationDuration, err = m.Float64Histogram("callaudit.simulation.duration",
		metric.WithDescription("Wall-clock duration of one simulated conversation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(conversationBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.LLMRequests, err = m.Int64Counter("callaudit.llm.requests",
		metric.WithDescription("Total LLM API requests by role, family, and status."),
	); err != nil {
		return nil, err
	}
	if met.Simulations, err = m.Int64Counter("callaudit.simulations",
		metric.WithDescription("Total finished simulations by agent ID and status."),
	); err != nil {
		return nil, err
	}
	if met.DegradedJudgements, err = m.Int64Counter("callaudit.judge.degraded",
		metric.WithDescription("Total judge evaluations that fell back to default scores."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.LLMErrors, err = m.Int64Counter("callaudit.llm.errors",
		metric.WithDescription("Total LLM call failures by role and family."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSimulations, err = m.Int64UpDownCounter("callaudit.active_simulations",
		metric.WithDescription("Number of simulations currently running."),
	); err != nil {
		return nil, err
	}
	if met.ActiveComparisons, err = m.Int64UpDownCounter("callaudit.active_comparisons",
		metric.WithDescription("Number of comparison jobs currently in flight."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("callaudit.http.request.duration",
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

// RecordLLMRequest is a convenience method that records an LLM request
// counter increment with the standard attribute set.
func (m *Metrics) RecordLLMRequest(ctx context.Context, role, family, status string) {
	m.LLMRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("role", role),
			attribute.String("family", family),
			attribute.String("status", status),
		),
	)
}

// RecordSimulation is a convenience method that records a finished simulation
// counter increment with the standard attribute set.
func (m *Metrics) RecordSimulation(ctx context.Context, agentID, status string) {
	m.Simulations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("agent_id", agentID),
			attribute.String("status", status),
		),
	)
}

// RecordDegradedJudgement is a convenience method that records a degraded
// judge verdict counter increment.
func (m *Metrics) RecordDegradedJudgement(ctx context.Context, agentID string) {
	m.DegradedJudgements.Add(ctx, 1,
		metric.WithAttributes(attribute.String("agent_id", agentID)),
	)
}

// RecordLLMError is a convenience method that records an LLM error counter
// increment.
func (m *Metrics) RecordLLMError(ctx context.Context, role, family string) {
	m.LLMErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("role", role),
			attribute.String("family", family),
		),
	)
}
