// Package simulate runs scripted multi-turn conversations against a
// candidate voice agent.
//
// Each simulation alternates between a scenario-driven user simulator and
// the agent's own LLM, timing every agent reply. After each agent turn a
// hangup oracle decides whether a real deployment would have disconnected
// the call. The finished transcript is scored by a Judge on accuracy,
// humanlikeness and outcome achievement.
package simulate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sonavox/callaudit/pkg/provider/llm"
)

// DefaultMaxTurns bounds a conversation when the caller does not override it.
const DefaultMaxTurns = 10

// Simulator drives one conversation at a time. Instances hold no per-run
// state and are safe for concurrent use when the underlying providers are.
type Simulator struct {
	agent  llm.Provider
	user   llm.Provider
	hangup *HangupOracle
	log    *slog.Logger
	now    func() time.Time
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger used for simulation progress.
func WithLogger(log *slog.Logger) Option {
	return func(s *Simulator) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a Simulator. agent answers as the candidate agent, user drives
// the scripted caller and hangup powers the end-of-call oracle.
func New(agent, user, hangup llm.Provider, opts ...Option) *Simulator {
	s := &Simulator{
		agent:  agent,
		user:   user,
		hangup: NewHangupOracle(hangup),
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run simulates a conversation between the scenario's user and the agent.
// maxTurns bounds the number of USER turns; values below one fall back to
// DefaultMaxTurns. The returned Result always carries a hangup reason, even
// when the loop ran to the turn limit.
func (s *Simulator) Run(ctx context.Context, agent AgentConfig, scenario Scenario, maxTurns int) (*Result, error) {
	if maxTurns < 1 {
		maxTurns = DefaultMaxTurns
	}

	s.log.Info("starting conversation simulation",
		"agent_id", agent.AgentID, "max_turns", maxTurns)

	userSim := NewUserSimulator(s.user, scenario)

	var (
		transcript []Turn
		latencies  []float64
	)

	if agent.WelcomeMessage != "" {
		zero := 0.0
		transcript = append(transcript, Turn{
			Role:        RoleAgent,
			Content:     agent.WelcomeMessage,
			TimestampMS: s.now().UnixMilli(),
			LatencyMS:   &zero,
		})
	}

	reason := ReasonMaxTurnsReached
	for turn := 1; turn <= maxTurns; turn++ {
		userMsg, done, err := userSim.NextTurn(ctx, transcript)
		if err != nil {
			return nil, fmt.Errorf("simulate: turn %d: %w", turn, err)
		}
		if done {
			reason = ReasonUserSimulatorEnded
			s.log.Info("conversation ended by user simulator", "turn", turn)
			break
		}

		transcript = append(transcript, Turn{
			Role:        RoleUser,
			Content:     userMsg,
			TimestampMS: s.now().UnixMilli(),
		})

		start := s.now()
		agentMsg, err := s.callAgent(ctx, agent, transcript)
		if err != nil {
			return nil, fmt.Errorf("simulate: turn %d: %w", turn, err)
		}
		latencyMS := float64(s.now().Sub(start)) / float64(time.Millisecond)

		rounded := roundMS(latencyMS)
		transcript = append(transcript, Turn{
			Role:        RoleAgent,
			Content:     agentMsg,
			TimestampMS: s.now().UnixMilli(),
			LatencyMS:   &rounded,
		})
		latencies = append(latencies, latencyMS)

		shouldEnd, err := s.hangup.ShouldHangup(ctx, agent.HangupPrompt, transcript)
		if err != nil {
			// Oracle failures never abort a simulation.
			s.log.Warn("hangup check failed, continuing", "turn", turn, "error", err)
			shouldEnd = false
		}
		if shouldEnd {
			reason = ReasonHangupTriggered
			s.log.Info("conversation ended by hangup logic", "turn", turn)
			break
		}
	}

	total := 0
	for _, t := range transcript {
		if t.Role == RoleUser {
			total++
		}
	}

	s.log.Info("simulation completed",
		"agent_id", agent.AgentID, "total_turns", total, "hangup_reason", reason)

	return &Result{
		Transcript:   transcript,
		Latencies:    latencies,
		TotalTurns:   total,
		HangupReason: reason,
	}, nil
}

// callAgent replays the transcript to the agent's LLM under the agent's own
// sampling parameters and returns its reply.
func (s *Simulator) callAgent(ctx context.Context, agent AgentConfig, history []Turn) (string, error) {
	messages := make([]llm.Message, 0, len(history))
	for _, t := range history {
		role := llm.RoleUser
		if t.Role == RoleAgent {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Content})
	}

	resp, err := s.agent.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: agent.SystemPrompt,
		Messages:     messages,
		Temperature:  agent.Temperature,
		MaxTokens:    agent.MaxTokens,
		TopP:         agent.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("agent llm: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// roundMS rounds a millisecond latency to two decimals for the transcript.
func roundMS(ms float64) float64 {
	return float64(int64(ms*100+0.5)) / 100
}
