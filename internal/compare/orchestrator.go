// Package compare runs head-to-head agent comparisons: N simulations per
// agent under a global concurrency cap, per-run scoring, per-agent
// aggregation, deterministic ranking and a critical-issue report for the
// winner.
package compare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sonavox/callaudit/internal/simulate"
)

// Defaults for orchestration knobs when the request does not override them.
const (
	DefaultMaxConcurrent = 3
	DefaultTimeout       = 300 * time.Second
)

// ErrUnsupportedAgent marks a comparison rejected before any simulation ran
// because at least one agent uses an LLM family the simulator cannot drive.
var ErrUnsupportedAgent = errors.New("compare: unsupported agent llm family")

// Runner executes one simulation. *simulate.Simulator satisfies it.
type Runner interface {
	Run(ctx context.Context, agent simulate.AgentConfig, scenario simulate.Scenario, maxTurns int) (*simulate.Result, error)
}

// Judge scores a finished transcript. *simulate.Judge satisfies it.
type Judge interface {
	Evaluate(ctx context.Context, turns []simulate.Turn, scenario simulate.Scenario) *simulate.Judgement
}

// ConfigResolver fetches an agent's configuration by ID, typically from the
// telephony platform's API.
type ConfigResolver interface {
	Fetch(ctx context.Context, agentID string) (simulate.AgentConfig, error)
}

// Recorder persists comparison progress. Implementations may be backed by a
// database; a nil Recorder disables persistence. Recorder failures are
// logged and never abort the comparison.
type Recorder interface {
	SetPhase(ctx context.Context, comparisonID, status, phase string) error
	RecordRun(ctx context.Context, run *Run) error
	RecordAggregate(ctx context.Context, comparisonID string, agg *Aggregate) error
	Complete(ctx context.Context, comparisonID string, result *Result) error
}

// Request describes one comparison. At least one of Configs and AgentIDs
// must be set; when both are present the IDs are resolved and the inline
// configs appended, so mixed agent lists compare all of them.
type Request struct {
	ComparisonID   string
	AgentIDs       []string
	Configs        []simulate.AgentConfig
	Scenario       simulate.Scenario
	NumSimulations int

	// Overrides; zero values fall back to the orchestrator defaults.
	MaxConcurrent int
	Timeout       time.Duration
	MaxTurns      int
}

// Orchestrator coordinates a full comparison.
type Orchestrator struct {
	runner   Runner
	judge    Judge
	resolver ConfigResolver
	recorder Recorder
	log      *slog.Logger

	maxConcurrent int
	timeout       time.Duration
	maxTurns      int
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithResolver sets the agent config resolver used when a request carries
// agent IDs instead of resolved configs.
func WithResolver(r ConfigResolver) OrchestratorOption {
	return func(o *Orchestrator) { o.resolver = r }
}

// WithRecorder sets the persistence hook.
func WithRecorder(r Recorder) OrchestratorOption {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// WithDefaults overrides the orchestration knobs applied when a request
// leaves them zero.
func WithDefaults(maxConcurrent int, timeout time.Duration, maxTurns int) OrchestratorOption {
	return func(o *Orchestrator) {
		if maxConcurrent > 0 {
			o.maxConcurrent = maxConcurrent
		}
		if timeout > 0 {
			o.timeout = timeout
		}
		if maxTurns > 0 {
			o.maxTurns = maxTurns
		}
	}
}

// NewOrchestrator builds an Orchestrator over a simulation runner and a
// judge.
func NewOrchestrator(runner Runner, judge Judge, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		runner:        runner,
		judge:         judge,
		log:           slog.Default(),
		maxConcurrent: DefaultMaxConcurrent,
		timeout:       DefaultTimeout,
		maxTurns:      simulate.DefaultMaxTurns,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute runs the full comparison: resolve and validate configs, fan out
// simulations bounded by the global semaphore, score and aggregate per
// agent, rank, and analyze the winner for critical issues.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*Result, error) {
	comparisonID := req.ComparisonID
	if comparisonID == "" {
		comparisonID = uuid.New().String()
	}

	if req.NumSimulations < 1 {
		o.fail(ctx, comparisonID, "")
		return nil, fmt.Errorf("compare: num simulations must be at least 1, got %d", req.NumSimulations)
	}

	maxConcurrent := req.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = o.maxConcurrent
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = o.timeout
	}
	maxTurns := req.MaxTurns
	if maxTurns < 1 {
		maxTurns = o.maxTurns
	}

	o.log.Info("starting comparison",
		"comparison_id", comparisonID,
		"agents", len(req.Configs)+len(req.AgentIDs),
		"num_simulations", req.NumSimulations,
		"max_concurrent", maxConcurrent)

	o.setPhase(ctx, comparisonID, StatusRunning, PhaseFetchingConfigs)

	configs, err := o.resolveConfigs(ctx, req)
	if err != nil {
		o.fail(ctx, comparisonID, PhaseFetchingConfigs)
		return nil, err
	}
	if err := validateConfigs(configs); err != nil {
		o.fail(ctx, comparisonID, PhaseFetchingConfigs)
		return nil, err
	}

	o.setPhase(ctx, comparisonID, StatusRunning, PhaseRunningSimulations)

	// One semaphore across all agents keeps total in-flight simulations
	// bounded, not just per agent.
	sem := semaphore.NewWeighted(int64(maxConcurrent))

	agentRuns := make([][]Run, len(configs))
	var eg errgroup.Group
	for i, cfg := range configs {
		eg.Go(func() error {
			agentRuns[i] = o.runAgentSimulations(ctx, comparisonID, cfg, req.Scenario, req.NumSimulations, sem, timeout, maxTurns)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		o.fail(ctx, comparisonID, PhaseRunningSimulations)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		o.fail(ctx, comparisonID, PhaseRunningSimulations)
		return nil, fmt.Errorf("compare: comparison canceled: %w", err)
	}

	o.setPhase(ctx, comparisonID, StatusRunning, PhaseAggregating)

	aggregates := make([]Aggregate, len(configs))
	for i, cfg := range configs {
		aggregates[i] = aggregateRuns(cfg.AgentID, cfg.AgentName, agentRuns[i], maxTurns)
		o.recordAggregate(ctx, comparisonID, &aggregates[i])
	}

	o.setPhase(ctx, comparisonID, StatusRunning, PhaseAnalyzing)

	result := &Result{
		ComparisonID:        comparisonID,
		TotalAgents:         len(configs),
		SimulationsPerAgent: req.NumSimulations,
		Rankings:            rankAggregates(aggregates),
	}
	for _, runs := range agentRuns {
		for _, r := range runs {
			result.RunIDs = append(result.RunIDs, r.RunID)
		}
	}

	if len(result.Rankings) > 0 {
		best := result.Rankings[0]
		result.CriticalIssues = AnalyzeCriticalIssues(best.Aggregate, nil)
		o.log.Info("analyzed best agent",
			"agent_name", best.AgentName, "critical_issues", len(result.CriticalIssues))
	}

	o.complete(ctx, comparisonID, result)

	o.log.Info("comparison completed",
		"comparison_id", comparisonID,
		"total_agents", result.TotalAgents,
		"total_runs", len(result.RunIDs))

	return result, nil
}

// resolveConfigs returns the agent configs for the request: agent IDs are
// fetched in parallel, then the pre-resolved configs appended. Mixed
// requests keep both halves.
func (o *Orchestrator) resolveConfigs(ctx context.Context, req Request) ([]simulate.AgentConfig, error) {
	if len(req.AgentIDs) == 0 && len(req.Configs) == 0 {
		return nil, fmt.Errorf("compare: no agents requested")
	}
	if len(req.AgentIDs) > 0 && o.resolver == nil {
		return nil, fmt.Errorf("compare: agent ids given but no config resolver configured")
	}

	configs := make([]simulate.AgentConfig, len(req.AgentIDs), len(req.AgentIDs)+len(req.Configs))
	eg, fetchCtx := errgroup.WithContext(ctx)
	for i, id := range req.AgentIDs {
		eg.Go(func() error {
			cfg, err := o.resolver.Fetch(fetchCtx, id)
			if err != nil {
				return fmt.Errorf("compare: fetch agent %s: %w", id, err)
			}
			configs[i] = cfg
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return append(configs, req.Configs...), nil
}

// validateConfigs enforces the hard precondition that every candidate agent
// runs on an OpenAI model.
func validateConfigs(configs []simulate.AgentConfig) error {
	var unsupported []string
	for _, c := range configs {
		if !strings.EqualFold(c.LLMFamily, "openai") {
			unsupported = append(unsupported, fmt.Sprintf("%s (%s)", c.AgentName, c.LLMFamily))
		}
	}
	if len(unsupported) > 0 {
		return fmt.Errorf("%w: only OpenAI models supported, rejected: %s",
			ErrUnsupportedAgent, strings.Join(unsupported, ", "))
	}
	return nil
}

// runAgentSimulations executes all simulations for one agent. Individual
// failures are recorded on the run, never propagated: one bad run must not
// take down its siblings or the comparison.
func (o *Orchestrator) runAgentSimulations(
	ctx context.Context,
	comparisonID string,
	agent simulate.AgentConfig,
	scenario simulate.Scenario,
	numSimulations int,
	sem *semaphore.Weighted,
	timeout time.Duration,
	maxTurns int,
) []Run {
	o.log.Info("starting agent simulations",
		"agent_name", agent.AgentName, "count", numSimulations)

	runs := make([]Run, numSimulations)
	var wg sync.WaitGroup
	for i := range numSimulations {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runs[i] = o.runOneSimulation(ctx, comparisonID, agent, scenario, i+1, sem, timeout, maxTurns)
		}()
	}
	wg.Wait()

	failed := 0
	for _, r := range runs {
		if r.Status != StatusCompleted {
			failed++
		}
	}
	if failed > 0 {
		o.log.Warn("some simulations failed",
			"agent_id", agent.AgentID, "failed", failed, "total", numSimulations)
	}
	return runs
}

// runOneSimulation runs and scores a single simulation under the global
// semaphore and the per-run timeout.
func (o *Orchestrator) runOneSimulation(
	ctx context.Context,
	comparisonID string,
	agent simulate.AgentConfig,
	scenario simulate.Scenario,
	simulationNumber int,
	sem *semaphore.Weighted,
	timeout time.Duration,
	maxTurns int,
) Run {
	run := Run{
		RunID:            uuid.New().String(),
		ComparisonID:     comparisonID,
		AgentID:          agent.AgentID,
		AgentName:        agent.AgentName,
		SimulationNumber: simulationNumber,
		Status:           StatusPending,
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		run.Status = StatusFailed
		run.Error = fmt.Sprintf("acquire simulation slot: %v", err)
		o.recordRun(ctx, &run)
		return run
	}
	defer sem.Release(1)

	run.Status = StatusRunning
	o.recordRun(ctx, &run)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	simResult, err := o.runner.Run(runCtx, agent, scenario, maxTurns)
	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
		o.log.Error("simulation failed",
			"agent_id", agent.AgentID, "simulation", simulationNumber, "error", err)
		o.recordRun(ctx, &run)
		return run
	}

	run.Transcript = simResult.Transcript
	run.TotalTurns = simResult.TotalTurns
	run.HangupReason = simResult.HangupReason
	run.Latency = CalculatePercentiles(latenciesFromMillis(simResult.Latencies))

	jd := o.judge.Evaluate(runCtx, simResult.Transcript, scenario)
	run.Judgement = jd
	run.OverallAccuracy = ptr(jd.Accuracy / 10)
	run.HumanlikeRating = ptr(jd.Humanlike)
	run.OutcomeOrientation = ptr(jd.Outcome)
	run.CompositeScore = ptr(compositeScore(
		run.OverallAccuracy, run.HumanlikeRating, run.OutcomeOrientation,
		run.TotalTurns, maxTurns))

	run.Status = StatusCompleted
	o.recordRun(ctx, &run)

	o.log.Info("simulation completed",
		"agent_name", agent.AgentName,
		"run_id", run.RunID,
		"turns", run.TotalTurns,
		"composite", *run.CompositeScore,
		"latency_median", run.Latency.Median)

	return run
}

// rankAggregates orders agents best first: composite mean descending, ties
// broken by lower mean median latency. Nil composites rank as 0, nil
// latencies as slowest.
func rankAggregates(aggregates []Aggregate) []Ranking {
	sorted := make([]Aggregate, len(aggregates))
	copy(sorted, aggregates)

	sort.SliceStable(sorted, func(i, j int) bool {
		ci, cj := scoreOrZero(sorted[i].CompositeScoreMean), scoreOrZero(sorted[j].CompositeScoreMean)
		if ci != cj {
			return ci > cj
		}
		return latencyOrWorst(sorted[i].LatencyMedianMean) < latencyOrWorst(sorted[j].LatencyMedianMean)
	})

	rankings := make([]Ranking, len(sorted))
	for i, agg := range sorted {
		rankings[i] = Ranking{Rank: i + 1, Aggregate: agg}
	}
	return rankings
}

func scoreOrZero(v *float64) float64 {
	if v == nil {
		return 0.0
	}
	return *v
}

func latencyOrWorst(v *float64) float64 {
	if v == nil {
		return 999
	}
	return *v
}

// fail persists the failed status so pollers never see a comparison stuck
// on running. The surrounding context may already be canceled, which is why
// the write uses a detached one.
func (o *Orchestrator) fail(ctx context.Context, comparisonID, phase string) {
	o.setPhase(context.WithoutCancel(ctx), comparisonID, StatusFailed, phase)
}

func (o *Orchestrator) setPhase(ctx context.Context, comparisonID, status, phase string) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.SetPhase(ctx, comparisonID, status, phase); err != nil {
		o.log.Warn("failed to persist comparison phase",
			"comparison_id", comparisonID, "phase", phase, "error", err)
	}
}

func (o *Orchestrator) recordRun(ctx context.Context, run *Run) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordRun(ctx, run); err != nil {
		o.log.Warn("failed to persist run", "run_id", run.RunID, "error", err)
	}
}

func (o *Orchestrator) recordAggregate(ctx context.Context, comparisonID string, agg *Aggregate) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordAggregate(ctx, comparisonID, agg); err != nil {
		o.log.Warn("failed to persist aggregate",
			"comparison_id", comparisonID, "agent_id", agg.AgentID, "error", err)
	}
}

func (o *Orchestrator) complete(ctx context.Context, comparisonID string, result *Result) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Complete(ctx, comparisonID, result); err != nil {
		o.log.Warn("failed to persist comparison result",
			"comparison_id", comparisonID, "error", err)
	}
}
