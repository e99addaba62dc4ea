package cli

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/sonavox/callaudit/internal/compare"
	"github.com/sonavox/callaudit/internal/observe"
)

// metricsRecorder observes comparison progress as OpenTelemetry metrics and
// forwards every call to the wrapped recorder. next may be nil when
// persistence is disabled.
type metricsRecorder struct {
	m    *observe.Metrics
	next compare.Recorder

	// mu guards running; runs that fail before starting must not
	// decrement the in-flight gauge.
	mu      sync.Mutex
	running map[string]struct{}
}

var _ compare.Recorder = (*metricsRecorder)(nil)

func newMetricsRecorder(m *observe.Metrics, next compare.Recorder) *metricsRecorder {
	return &metricsRecorder{m: m, next: next, running: make(map[string]struct{})}
}

// markRunning records run as in flight. Reports false when it already was.
func (r *metricsRecorder) markRunning(runID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.running[runID]; ok {
		return false
	}
	r.running[runID] = struct{}{}
	return true
}

// clearRunning removes run from the in-flight set. Reports whether it was
// present.
func (r *metricsRecorder) clearRunning(runID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.running[runID]; !ok {
		return false
	}
	delete(r.running, runID)
	return true
}

func (r *metricsRecorder) SetPhase(ctx context.Context, comparisonID, status, phase string) error {
	if r.next != nil {
		return r.next.SetPhase(ctx, comparisonID, status, phase)
	}
	return nil
}

// RecordRun tracks the in-flight simulation gauge and, on terminal runs,
// records the outcome counter, per-turn agent latencies, and the wall-clock
// conversation duration.
func (r *metricsRecorder) RecordRun(ctx context.Context, run *compare.Run) error {
	agentAttr := metric.WithAttributes(observe.Attr("agent_id", run.AgentID))

	switch run.Status {
	case compare.StatusRunning:
		if r.markRunning(run.RunID) {
			r.m.ActiveSimulations.Add(ctx, 1)
		}

	case compare.StatusCompleted, compare.StatusFailed:
		if r.clearRunning(run.RunID) {
			r.m.ActiveSimulations.Add(ctx, -1)
		}
		r.m.RecordSimulation(ctx, run.AgentID, run.Status)

		if run.Judgement != nil && run.Judgement.Degraded {
			r.m.RecordDegradedJudgement(ctx, run.AgentID)
		}
		for _, turn := range run.Transcript {
			if turn.LatencyMS != nil {
				r.m.AgentTurnLatency.Record(ctx, *turn.LatencyMS/1000, agentAttr)
			}
		}
		if n := len(run.Transcript); n > 1 {
			elapsed := float64(run.Transcript[n-1].TimestampMS-run.Transcript[0].TimestampMS) / 1000
			r.m.SimulationDuration.Record(ctx, elapsed, agentAttr)
		}
	}

	if r.next != nil {
		return r.next.RecordRun(ctx, run)
	}
	return nil
}

func (r *metricsRecorder) RecordAggregate(ctx context.Context, comparisonID string, agg *compare.Aggregate) error {
	if r.next != nil {
		return r.next.RecordAggregate(ctx, comparisonID, agg)
	}
	return nil
}

func (r *metricsRecorder) Complete(ctx context.Context, comparisonID string, result *compare.Result) error {
	if r.next != nil {
		return r.next.Complete(ctx, comparisonID, result)
	}
	return nil
}
