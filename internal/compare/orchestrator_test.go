package compare

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sonavox/callaudit/internal/simulate"
)

// runnerFunc adapts a function to the Runner interface.
type runnerFunc func(ctx context.Context, agent simulate.AgentConfig, scenario simulate.Scenario, maxTurns int) (*simulate.Result, error)

func (f runnerFunc) Run(ctx context.Context, agent simulate.AgentConfig, scenario simulate.Scenario, maxTurns int) (*simulate.Result, error) {
	return f(ctx, agent, scenario, maxTurns)
}

// judgeFunc adapts a function to the Judge interface.
type judgeFunc func(ctx context.Context, turns []simulate.Turn, scenario simulate.Scenario) *simulate.Judgement

func (f judgeFunc) Evaluate(ctx context.Context, turns []simulate.Turn, scenario simulate.Scenario) *simulate.Judgement {
	return f(ctx, turns, scenario)
}

func staticJudge(accuracy, humanlike, outcome float64) Judge {
	return judgeFunc(func(context.Context, []simulate.Turn, simulate.Scenario) *simulate.Judgement {
		return &simulate.Judgement{Accuracy: accuracy, Humanlike: humanlike, Outcome: outcome}
	})
}

func goodResult(turns int) *simulate.Result {
	return &simulate.Result{
		Transcript:   []simulate.Turn{{Role: simulate.RoleUser, Content: "hi"}},
		Latencies:    []float64{1000, 1200},
		TotalTurns:   turns,
		HangupReason: simulate.ReasonHangupTriggered,
	}
}

func agentConfig(id, name, family string) simulate.AgentConfig {
	return simulate.AgentConfig{
		AgentID:   id,
		AgentName: name,
		LLMFamily: family,
		LLMModel:  "gpt-4",
	}
}

func TestOrchestratorRejectsUnsupportedFamily(t *testing.T) {
	t.Parallel()

	o := NewOrchestrator(
		runnerFunc(func(context.Context, simulate.AgentConfig, simulate.Scenario, int) (*simulate.Result, error) {
			t.Fatal("no simulation may run for an unsupported agent set")
			return nil, nil
		}),
		staticJudge(8, 8, 8),
	)

	_, err := o.Execute(context.Background(), Request{
		Configs: []simulate.AgentConfig{
			agentConfig("a", "Good", "openai"),
			agentConfig("b", "Bad", "anthropic"),
		},
		NumSimulations: 1,
	})
	if !errors.Is(err, ErrUnsupportedAgent) {
		t.Fatalf("want ErrUnsupportedAgent, got %v", err)
	}
}

func TestOrchestratorAllAgentsAccounted(t *testing.T) {
	t.Parallel()

	// Agent B's simulations all fail; both agents must still appear and
	// agent A ranks first.
	runner := runnerFunc(func(_ context.Context, agent simulate.AgentConfig, _ simulate.Scenario, _ int) (*simulate.Result, error) {
		if agent.AgentID == "b" {
			return nil, errors.New("simulation timed out")
		}
		return goodResult(4), nil
	})

	o := NewOrchestrator(runner, staticJudge(8, 7, 9))

	res, err := o.Execute(context.Background(), Request{
		ComparisonID: "cmp-1",
		Configs: []simulate.AgentConfig{
			agentConfig("a", "Alpha", "openai"),
			agentConfig("b", "Beta", "openai"),
		},
		NumSimulations: 3,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if res.TotalAgents != 2 || len(res.Rankings) != 2 {
		t.Fatalf("both agents must appear, got %+v", res)
	}
	if len(res.RunIDs) != 6 {
		t.Errorf("want 6 run ids, got %d", len(res.RunIDs))
	}

	first, second := res.Rankings[0], res.Rankings[1]
	if first.AgentID != "a" || first.Rank != 1 {
		t.Errorf("agent A must rank first, got %+v", first)
	}
	if second.AgentID != "b" || second.SuccessfulSimulations != 0 {
		t.Fatalf("agent B must appear with zero successes, got %+v", second)
	}
	if second.Error != "All simulations failed" {
		t.Errorf("want failure marker on agent B, got %q", second.Error)
	}
	if second.CompositeScoreMean != nil || second.AccuracyMean != nil {
		t.Errorf("agent B stats must be nil")
	}
	if first.SuccessfulSimulations != 3 || first.CompositeScoreMean == nil {
		t.Errorf("agent A must have full stats, got %+v", first)
	}
}

func TestOrchestratorConcurrencyCap(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int64
	runner := runnerFunc(func(ctx context.Context, _ simulate.AgentConfig, _ simulate.Scenario, _ int) (*simulate.Result, error) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return goodResult(3), nil
	})

	o := NewOrchestrator(runner, staticJudge(8, 8, 8))

	_, err := o.Execute(context.Background(), Request{
		Configs: []simulate.AgentConfig{
			agentConfig("a", "Alpha", "openai"),
			agentConfig("b", "Beta", "openai"),
		},
		NumSimulations: 4,
		MaxConcurrent:  2,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := peak.Load(); got > 2 {
		t.Errorf("concurrency cap violated: %d simulations in flight", got)
	}
}

func TestOrchestratorTimeout(t *testing.T) {
	t.Parallel()

	runner := runnerFunc(func(ctx context.Context, _ simulate.AgentConfig, _ simulate.Scenario, _ int) (*simulate.Result, error) {
		select {
		case <-time.After(5 * time.Second):
			return goodResult(3), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	o := NewOrchestrator(runner, staticJudge(8, 8, 8))

	res, err := o.Execute(context.Background(), Request{
		Configs:        []simulate.AgentConfig{agentConfig("a", "Slow", "openai")},
		NumSimulations: 1,
		Timeout:        20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Rankings[0].SuccessfulSimulations != 0 {
		t.Errorf("timed-out run must count as failed, got %+v", res.Rankings[0])
	}
}

func TestOrchestratorRankingTieBreak(t *testing.T) {
	t.Parallel()

	// Identical judge scores and turn counts force a composite tie; the
	// faster agent must win.
	runner := runnerFunc(func(_ context.Context, agent simulate.AgentConfig, _ simulate.Scenario, _ int) (*simulate.Result, error) {
		res := goodResult(4)
		if agent.AgentID == "fast" {
			res.Latencies = []float64{500, 600}
		} else {
			res.Latencies = []float64{2000, 2500}
		}
		return res, nil
	})

	o := NewOrchestrator(runner, staticJudge(8, 7, 9))

	res, err := o.Execute(context.Background(), Request{
		Configs: []simulate.AgentConfig{
			agentConfig("slow", "Slow", "openai"),
			agentConfig("fast", "Fast", "openai"),
		},
		NumSimulations: 2,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Rankings[0].AgentID != "fast" {
		t.Errorf("tie must break on lower median latency, got %+v", res.Rankings)
	}
}

func TestOrchestratorCriticalIssuesOnWinner(t *testing.T) {
	t.Parallel()

	runner := runnerFunc(func(_ context.Context, _ simulate.AgentConfig, _ simulate.Scenario, maxTurns int) (*simulate.Result, error) {
		// Every conversation runs to the turn limit: hangup rate 0.
		res := goodResult(maxTurns)
		res.HangupReason = simulate.ReasonMaxTurnsReached
		return res, nil
	})

	o := NewOrchestrator(runner, staticJudge(9, 8, 9))

	res, err := o.Execute(context.Background(), Request{
		Configs:        []simulate.AgentConfig{agentConfig("a", "Alpha", "openai")},
		NumSimulations: 2,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.CriticalIssues) == 0 {
		t.Fatal("want a hangup-rate issue on the winner")
	}
	if res.CriticalIssues[0].Title != "Very Low Hangup Success Rate" {
		t.Errorf("unexpected issue %+v", res.CriticalIssues[0])
	}
}

// memRecorder records orchestration callbacks for assertions.
type memRecorder struct {
	mu         sync.Mutex
	statuses   []string
	phases     []string
	runs       []Run
	aggregates []Aggregate
	completed  bool
}

func (m *memRecorder) SetPhase(_ context.Context, _, status, phase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
	m.phases = append(m.phases, phase)
	return nil
}

func (m *memRecorder) lastStatus() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.statuses) == 0 {
		return ""
	}
	return m.statuses[len(m.statuses)-1]
}

func (m *memRecorder) RecordRun(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memRecorder) RecordAggregate(_ context.Context, _ string, agg *Aggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aggregates = append(m.aggregates, *agg)
	return nil
}

func (m *memRecorder) Complete(_ context.Context, _ string, _ *Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = true
	return nil
}

func TestOrchestratorRecorderLifecycle(t *testing.T) {
	t.Parallel()

	rec := &memRecorder{}
	runner := runnerFunc(func(context.Context, simulate.AgentConfig, simulate.Scenario, int) (*simulate.Result, error) {
		return goodResult(3), nil
	})

	o := NewOrchestrator(runner, staticJudge(8, 8, 8), WithRecorder(rec))

	_, err := o.Execute(context.Background(), Request{
		Configs:        []simulate.AgentConfig{agentConfig("a", "Alpha", "openai")},
		NumSimulations: 2,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	wantPhases := []string{PhaseFetchingConfigs, PhaseRunningSimulations, PhaseAggregating, PhaseAnalyzing}
	if fmt.Sprint(rec.phases) != fmt.Sprint(wantPhases) {
		t.Errorf("want phases %v, got %v", wantPhases, rec.phases)
	}
	if !rec.completed {
		t.Error("comparison completion must be recorded")
	}
	if len(rec.aggregates) != 1 {
		t.Errorf("want 1 aggregate, got %d", len(rec.aggregates))
	}
	// Each run is recorded at least twice: running then completed.
	completed := 0
	for _, r := range rec.runs {
		if r.Status == StatusCompleted {
			completed++
		}
	}
	if completed != 2 {
		t.Errorf("want 2 completed run records, got %d", completed)
	}
}

// resolverFunc adapts a function to ConfigResolver.
type resolverFunc func(ctx context.Context, agentID string) (simulate.AgentConfig, error)

func (f resolverFunc) Fetch(ctx context.Context, agentID string) (simulate.AgentConfig, error) {
	return f(ctx, agentID)
}

func TestOrchestratorResolvesAgentIDs(t *testing.T) {
	t.Parallel()

	resolver := resolverFunc(func(_ context.Context, id string) (simulate.AgentConfig, error) {
		return agentConfig(id, "Agent "+id, "openai"), nil
	})
	runner := runnerFunc(func(context.Context, simulate.AgentConfig, simulate.Scenario, int) (*simulate.Result, error) {
		return goodResult(3), nil
	})

	o := NewOrchestrator(runner, staticJudge(8, 8, 8), WithResolver(resolver))

	res, err := o.Execute(context.Background(), Request{
		AgentIDs:       []string{"a1", "a2"},
		NumSimulations: 1,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.TotalAgents != 2 {
		t.Errorf("want 2 agents, got %d", res.TotalAgents)
	}
}

func TestOrchestratorMixedAgentSources(t *testing.T) {
	t.Parallel()

	// One agent arrives pre-resolved, one only as an ID; both must be
	// simulated and ranked.
	var fetched atomic.Int64
	resolver := resolverFunc(func(_ context.Context, id string) (simulate.AgentConfig, error) {
		fetched.Add(1)
		return agentConfig(id, "Agent "+id, "openai"), nil
	})
	runner := runnerFunc(func(context.Context, simulate.AgentConfig, simulate.Scenario, int) (*simulate.Result, error) {
		return goodResult(3), nil
	})

	o := NewOrchestrator(runner, staticJudge(8, 8, 8), WithResolver(resolver))

	res, err := o.Execute(context.Background(), Request{
		AgentIDs:       []string{"platform-1"},
		Configs:        []simulate.AgentConfig{agentConfig("inline-1", "Inline", "openai")},
		NumSimulations: 1,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if fetched.Load() != 1 {
		t.Errorf("resolver fetches = %d, want 1", fetched.Load())
	}
	if res.TotalAgents != 2 || len(res.Rankings) != 2 {
		t.Fatalf("want both agents in the comparison, got %+v", res)
	}
	seen := map[string]bool{}
	for _, r := range res.Rankings {
		seen[r.AgentID] = true
	}
	if !seen["platform-1"] || !seen["inline-1"] {
		t.Errorf("rankings missing an agent: %v", seen)
	}
}

func TestOrchestratorMixedAgentsNeedResolver(t *testing.T) {
	t.Parallel()

	o := NewOrchestrator(
		runnerFunc(func(context.Context, simulate.AgentConfig, simulate.Scenario, int) (*simulate.Result, error) {
			t.Fatal("no simulation may run when ids cannot be resolved")
			return nil, nil
		}),
		staticJudge(8, 8, 8),
	)

	_, err := o.Execute(context.Background(), Request{
		AgentIDs:       []string{"platform-1"},
		Configs:        []simulate.AgentConfig{agentConfig("inline-1", "Inline", "openai")},
		NumSimulations: 1,
	})
	if err == nil {
		t.Fatal("want error when ids are present without a resolver")
	}
}

func TestOrchestratorPersistsFailedStatus(t *testing.T) {
	t.Parallel()

	rec := &memRecorder{}
	o := NewOrchestrator(
		runnerFunc(func(context.Context, simulate.AgentConfig, simulate.Scenario, int) (*simulate.Result, error) {
			return goodResult(3), nil
		}),
		staticJudge(8, 8, 8),
		WithRecorder(rec),
	)

	_, err := o.Execute(context.Background(), Request{
		Configs:        []simulate.AgentConfig{agentConfig("b", "Bad", "anthropic")},
		NumSimulations: 1,
	})
	if !errors.Is(err, ErrUnsupportedAgent) {
		t.Fatalf("want ErrUnsupportedAgent, got %v", err)
	}
	if got := rec.lastStatus(); got != StatusFailed {
		t.Errorf("last persisted status = %q, want %q", got, StatusFailed)
	}
}

func TestOrchestratorPersistsFailedStatusOnCancel(t *testing.T) {
	t.Parallel()

	rec := &memRecorder{}
	ctx, cancel := context.WithCancel(context.Background())
	runner := runnerFunc(func(ctx context.Context, _ simulate.AgentConfig, _ simulate.Scenario, _ int) (*simulate.Result, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})

	o := NewOrchestrator(runner, staticJudge(8, 8, 8), WithRecorder(rec))

	_, err := o.Execute(ctx, Request{
		Configs:        []simulate.AgentConfig{agentConfig("a", "Alpha", "openai")},
		NumSimulations: 1,
	})
	if err == nil {
		t.Fatal("want error for canceled comparison")
	}
	if got := rec.lastStatus(); got != StatusFailed {
		t.Errorf("last persisted status = %q, want %q", got, StatusFailed)
	}
}

func TestOrchestratorNoAgents(t *testing.T) {
	t.Parallel()

	o := NewOrchestrator(
		runnerFunc(func(context.Context, simulate.AgentConfig, simulate.Scenario, int) (*simulate.Result, error) {
			return goodResult(3), nil
		}),
		staticJudge(8, 8, 8),
	)

	if _, err := o.Execute(context.Background(), Request{NumSimulations: 1}); err == nil {
		t.Fatal("want error for empty agent set")
	}
}
