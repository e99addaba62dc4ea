package compare

import "github.com/sonavox/callaudit/internal/simulate"

// Comparison lifecycle statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Comparison phases, persisted so callers can poll progress.
const (
	PhaseFetchingConfigs    = "fetching_configs"
	PhaseRunningSimulations = "running_simulations"
	PhaseAggregating        = "aggregating"
	PhaseAnalyzing          = "analyzing"
)

// TurnLatency is one agent response latency, in seconds, numbered from 1.
type TurnLatency struct {
	Turn    int     `json:"turn"`
	Latency float64 `json:"latency"`
}

// LatencyStats summarizes a run's agent response latencies in seconds. All
// fields are zero when the run had no agent turns.
type LatencyStats struct {
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
	P99    float64 `json:"p99"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
}

// Run is the record of one simulation of one agent. Metric fields are
// pointers: nil means the metric was never computed (the run failed before
// scoring), which downstream aggregation must skip rather than zero-fill.
type Run struct {
	RunID            string `json:"run_id"`
	ComparisonID     string `json:"comparison_id"`
	AgentID          string `json:"agent_id"`
	AgentName        string `json:"agent_name"`
	SimulationNumber int    `json:"simulation_number"`
	Status           string `json:"status"`
	Error            string `json:"error,omitempty"`

	Transcript   []simulate.Turn `json:"transcript,omitempty"`
	TotalTurns   int             `json:"total_turns"`
	HangupReason string          `json:"hangup_reason,omitempty"`

	Latency LatencyStats `json:"latency"`

	// OverallAccuracy is on a 0 to 1 scale; the judge's other two scores
	// stay on their native 0 to 10 scale.
	OverallAccuracy    *float64 `json:"overall_accuracy,omitempty"`
	HumanlikeRating    *float64 `json:"humanlike_rating,omitempty"`
	OutcomeOrientation *float64 `json:"outcome_orientation,omitempty"`
	CompositeScore     *float64 `json:"composite_score,omitempty"`

	Judgement *simulate.Judgement `json:"judgement,omitempty"`
}

// Aggregate is the per-agent statistical rollup across all simulations in
// one comparison. Nil stat fields mean no successful run produced the
// underlying metric.
type Aggregate struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`

	TotalSimulations      int `json:"total_simulations"`
	SuccessfulSimulations int `json:"successful_simulations"`
	FailedSimulations     int `json:"failed_simulations"`

	// Error marks an agent whose every simulation failed. Such agents still
	// appear in the comparison with all stats nil.
	Error string `json:"error,omitempty"`

	LatencyMedianMean *float64 `json:"latency_median_mean,omitempty"`
	LatencyMedianStd  *float64 `json:"latency_median_std,omitempty"`
	LatencyP75Mean    *float64 `json:"latency_p75_mean,omitempty"`
	LatencyP75Std     *float64 `json:"latency_p75_std,omitempty"`
	LatencyP99Mean    *float64 `json:"latency_p99_mean,omitempty"`
	LatencyP99Std     *float64 `json:"latency_p99_std,omitempty"`

	AccuracyMean *float64 `json:"accuracy_mean,omitempty"`
	AccuracyStd  *float64 `json:"accuracy_std,omitempty"`
	AccuracyMin  *float64 `json:"accuracy_min,omitempty"`
	AccuracyMax  *float64 `json:"accuracy_max,omitempty"`

	HumanlikeMean *float64 `json:"humanlike_mean,omitempty"`
	HumanlikeStd  *float64 `json:"humanlike_std,omitempty"`
	HumanlikeMin  *float64 `json:"humanlike_min,omitempty"`
	HumanlikeMax  *float64 `json:"humanlike_max,omitempty"`

	OutcomeMean *float64 `json:"outcome_mean,omitempty"`
	OutcomeStd  *float64 `json:"outcome_std,omitempty"`
	OutcomeMin  *float64 `json:"outcome_min,omitempty"`
	OutcomeMax  *float64 `json:"outcome_max,omitempty"`

	CompositeScoreMean *float64 `json:"composite_score_mean,omitempty"`
	CompositeScoreStd  *float64 `json:"composite_score_std,omitempty"`

	AvgTurnsMean *float64 `json:"avg_turns_mean,omitempty"`
	AvgTurnsStd  *float64 `json:"avg_turns_std,omitempty"`

	HangupSuccessRate float64 `json:"hangup_success_rate"`
}

// Ranking is one agent's position in the final comparison, rank 1 best.
type Ranking struct {
	Rank int `json:"rank"`
	Aggregate
}

// Result is the finished comparison.
type Result struct {
	ComparisonID        string    `json:"comparison_id"`
	TotalAgents         int       `json:"total_agents"`
	SimulationsPerAgent int       `json:"simulations_per_agent"`
	Rankings            []Ranking `json:"rankings"`
	CriticalIssues      []Issue   `json:"critical_issues"`
	RunIDs              []string  `json:"run_ids"`
}

func ptr(v float64) *float64 { return &v }
