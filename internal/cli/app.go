package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sonavox/callaudit/internal/analyzer"
	"github.com/sonavox/callaudit/internal/bolna"
	"github.com/sonavox/callaudit/internal/compare"
	"github.com/sonavox/callaudit/internal/config"
	"github.com/sonavox/callaudit/internal/observe"
	"github.com/sonavox/callaudit/internal/simulate"
	"github.com/sonavox/callaudit/internal/store/postgres"
	"github.com/sonavox/callaudit/pkg/provider/llm"
)

// loadConfig reads and validates the config file at path. An empty path
// yields a default config so commands that need no external services (like
// analyze) run without one.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := &config.Config{}
		config.ApplyDefaults(cfg)
		return cfg, nil
	}
	return config.Load(path)
}

// newLogger builds a text slog logger at the configured level and installs
// it as the process default.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(log)
	return log
}

// analyzerConfig maps the YAML analyzer block onto the analyzer's full
// config, leaving unset fields at their defaults.
func analyzerConfig(cfg *config.Config) analyzer.Config {
	ac := analyzer.DefaultConfig()
	if cfg.Analyzer.SampleRate > 0 {
		ac.SampleRate = cfg.Analyzer.SampleRate
	}
	if cfg.Analyzer.Sensitivity != "" {
		ac.Sensitivity = cfg.Analyzer.Sensitivity
	}
	if cfg.Analyzer.MinSegmentDuration > 0 {
		ac.MinSegmentDuration = cfg.Analyzer.MinSegmentDuration
	}
	if cfg.Analyzer.MergeGapThreshold > 0 {
		ac.MergeGapThreshold = cfg.Analyzer.MergeGapThreshold
	}
	if cfg.Analyzer.PauseDedupWindow > 0 {
		ac.PauseDedupWindow = cfg.Analyzer.PauseDedupWindow
	}
	if cfg.Analyzer.InterruptionDedupWindow > 0 {
		ac.InterruptionDedupWindow = cfg.Analyzer.InterruptionDedupWindow
	}
	return ac
}

// newStore opens the PostgreSQL store when a DSN is configured. Returns nil
// without error when persistence is disabled.
func newStore(ctx context.Context, cfg *config.Config) (*postgres.Store, error) {
	if cfg.Storage.PostgresDSN == "" {
		return nil, nil
	}
	return postgres.NewStore(ctx, cfg.Storage.PostgresDSN)
}

// providerOr returns entry when it names a provider, otherwise fallback.
// The simulation roles all default to the candidate agent's backend.
func providerOr(entry, fallback config.ProviderEntry) config.ProviderEntry {
	if entry.Name != "" {
		return entry
	}
	return fallback
}

// buildOrchestrator wires the full comparison pipeline from config: the LLM
// providers behind each role, the simulator and judge, the optional Bolna
// resolver and PostgreSQL recorder. store may be nil.
func buildOrchestrator(cfg *config.Config, store *postgres.Store, log *slog.Logger) (*compare.Orchestrator, error) {
	if cfg.Providers.Agent.Name == "" {
		return nil, fmt.Errorf("cli: providers.agent must be configured to run comparisons")
	}

	registry := config.DefaultRegistry()
	metrics := observe.DefaultMetrics()
	agentEntry := cfg.Providers.Agent

	// Each simulation role gets its own instrumented provider so LLM
	// request and error counters are attributable per role.
	createRole := func(role string, entry config.ProviderEntry) (llm.Provider, error) {
		entry = providerOr(entry, agentEntry)
		p, err := registry.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("cli: create %s provider: %w", role, err)
		}
		return instrumentProvider(p, metrics, role, entry.Name), nil
	}

	agent, err := createRole("agent", agentEntry)
	if err != nil {
		return nil, err
	}
	user, err := createRole("user_simulator", cfg.Providers.UserSimulator)
	if err != nil {
		return nil, err
	}
	hangup, err := createRole("hangup_oracle", cfg.Providers.HangupOracle)
	if err != nil {
		return nil, err
	}
	judgeProvider, err := createRole("judge", cfg.Providers.Judge)
	if err != nil {
		return nil, err
	}

	sim := simulate.New(agent, user, hangup, simulate.WithLogger(log))
	judge := simulate.NewJudge(judgeProvider, log)

	opts := []compare.OrchestratorOption{
		compare.WithLogger(log),
		compare.WithDefaults(
			cfg.Simulation.MaxConcurrentSimulations,
			time.Duration(cfg.Simulation.ConversationTimeoutSeconds)*time.Second,
			cfg.Simulation.MaxConversationTurns,
		),
		compare.WithRecorder(newMetricsRecorder(metrics, recorderOrNil(store))),
	}

	if cfg.Bolna != nil && cfg.Bolna.APIKey != "" {
		bopts := []bolna.Option{bolna.WithLogger(log)}
		if cfg.Bolna.BaseURL != "" {
			bopts = append(bopts, bolna.WithBaseURL(cfg.Bolna.BaseURL))
		}
		resolver, err := bolna.New(cfg.Bolna.APIKey, bopts...)
		if err != nil {
			return nil, fmt.Errorf("cli: create bolna resolver: %w", err)
		}
		opts = append(opts, compare.WithResolver(resolver))
	}

	return compare.NewOrchestrator(sim, judge, opts...), nil
}

// recorderOrNil converts a possibly-nil *postgres.Store into a
// compare.Recorder without producing a non-nil interface around a nil
// pointer.
func recorderOrNil(store *postgres.Store) compare.Recorder {
	if store == nil {
		return nil
	}
	return store
}

// agentEntriesToRequest splits the configured agents into resolver IDs and
// inline configs, the two halves of a comparison request.
func agentEntriesToRequest(entries []config.AgentEntry) (ids []string, configs []simulate.AgentConfig) {
	for _, e := range entries {
		if e.Source == config.AgentSourceBolna {
			ids = append(ids, e.AgentID)
			continue
		}
		configs = append(configs, simulate.AgentConfig{
			AgentID:        e.AgentID,
			AgentName:      e.AgentName,
			WelcomeMessage: e.WelcomeMessage,
			SystemPrompt:   e.SystemPrompt,
			HangupPrompt:   e.HangupPrompt,
			LLMFamily:      e.LLMFamily,
			LLMModel:       e.LLMModel,
			Temperature:    e.Temperature,
			MaxTokens:      e.MaxTokens,
			TopP:           e.TopP,
		})
	}
	return ids, configs
}
