package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known LLM provider families. Used by [Validate]
// to warn about unrecognised names.
var ValidProviderNames = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills defaults, and validates
// the result. Useful in tests where configs are constructed from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields with their documented defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Simulation.MaxConcurrentSimulations == 0 {
		cfg.Simulation.MaxConcurrentSimulations = DefaultMaxConcurrentSimulations
	}
	if cfg.Simulation.ConversationTimeoutSeconds == 0 {
		cfg.Simulation.ConversationTimeoutSeconds = DefaultConversationTimeoutSeconds
	}
	if cfg.Simulation.MaxConversationTurns == 0 {
		cfg.Simulation.MaxConversationTurns = DefaultMaxConversationTurns
	}
	for i := range cfg.Agents {
		if cfg.Agents[i].Source == "" {
			cfg.Agents[i].Source = AgentSourceManual
		}
		if cfg.Agents[i].LLMFamily == "" {
			cfg.Agents[i].LLMFamily = "openai"
		}
	}
	if cfg.Scenario != nil && cfg.Scenario.NumSimulations == 0 {
		cfg.Scenario.NumSimulations = 1
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("agent", cfg.Providers.Agent.Name)
	validateProviderName("user_simulator", cfg.Providers.UserSimulator.Name)
	validateProviderName("hangup_oracle", cfg.Providers.HangupOracle.Name)
	validateProviderName("judge", cfg.Providers.Judge.Name)

	// Candidate agents only run on OpenAI models.
	if cfg.Providers.Agent.Name != "" && !strings.EqualFold(cfg.Providers.Agent.Name, "openai") {
		errs = append(errs, fmt.Errorf("providers.agent.name %q is invalid; candidate agents must use the openai family", cfg.Providers.Agent.Name))
	}

	// Analyzer
	if cfg.Analyzer.Sensitivity != "" && !cfg.Analyzer.Sensitivity.IsValid() {
		errs = append(errs, fmt.Errorf("analyzer.sensitivity %q is invalid; valid values: low, normal, high", cfg.Analyzer.Sensitivity))
	}
	if cfg.Analyzer.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("analyzer.sample_rate %d must not be negative", cfg.Analyzer.SampleRate))
	}
	if cfg.Analyzer.MinSegmentDuration < 0 {
		errs = append(errs, fmt.Errorf("analyzer.min_segment_duration %.2f must not be negative", cfg.Analyzer.MinSegmentDuration))
	}

	// Simulation
	if cfg.Simulation.MaxConcurrentSimulations < 1 {
		errs = append(errs, fmt.Errorf("simulation.max_concurrent_simulations %d must be at least 1", cfg.Simulation.MaxConcurrentSimulations))
	}
	if cfg.Simulation.ConversationTimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("simulation.conversation_timeout_seconds %d must be at least 1", cfg.Simulation.ConversationTimeoutSeconds))
	}
	if cfg.Simulation.MaxConversationTurns < 1 {
		errs = append(errs, fmt.Errorf("simulation.max_conversation_turns %d must be at least 1", cfg.Simulation.MaxConversationTurns))
	}

	// Storage availability
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; calls and comparisons will not be persisted")
	}
	if cfg.Storage.S3 != nil && cfg.Storage.S3.Bucket == "" {
		errs = append(errs, errors.New("storage.s3.bucket is required when storage.s3 is set"))
	}

	// Agent duplicate ID detection
	agentIDsSeen := make(map[string]int, len(cfg.Agents))
	hasBolnaAgents := false

	for i, agent := range cfg.Agents {
		prefix := fmt.Sprintf("agents[%d]", i)
		if !agent.Source.IsValid() {
			errs = append(errs, fmt.Errorf("%s.source %q is invalid; valid values: manual, bolna", prefix, agent.Source))
		}
		if agent.AgentID == "" {
			errs = append(errs, fmt.Errorf("%s.agent_id is required", prefix))
		} else {
			if prev, ok := agentIDsSeen[agent.AgentID]; ok {
				errs = append(errs, fmt.Errorf("%s.agent_id %q is a duplicate of agents[%d]", prefix, agent.AgentID, prev))
			}
			agentIDsSeen[agent.AgentID] = i
		}

		if agent.Source == AgentSourceManual {
			if agent.SystemPrompt == "" {
				errs = append(errs, fmt.Errorf("%s.system_prompt is required for manual agents", prefix))
			}
			if agent.LLMModel == "" {
				errs = append(errs, fmt.Errorf("%s.llm_model is required for manual agents", prefix))
			}
			if !strings.EqualFold(agent.LLMFamily, "openai") {
				errs = append(errs, fmt.Errorf("%s.llm_family %q is invalid; candidate agents must use the openai family", prefix, agent.LLMFamily))
			}
			if agent.HangupPrompt == "" {
				slog.Warn("agent has no hangup prompt; its conversations only end via the user simulator or the turn limit",
					"agent_id", agent.AgentID)
			}
		}
		if agent.Source == AgentSourceBolna {
			hasBolnaAgents = true
		}
		if agent.Temperature < 0 || agent.Temperature > 2 {
			errs = append(errs, fmt.Errorf("%s.temperature %.2f is out of range [0, 2]", prefix, agent.Temperature))
		}
		if agent.TopP < 0 || agent.TopP > 1 {
			errs = append(errs, fmt.Errorf("%s.top_p %.2f is out of range [0, 1]", prefix, agent.TopP))
		}
	}

	if hasBolnaAgents && (cfg.Bolna == nil || cfg.Bolna.APIKey == "") {
		errs = append(errs, errors.New("bolna.api_key is required when agents use source bolna"))
	}

	// Scenario
	if cfg.Scenario != nil {
		if cfg.Scenario.UserPersona == "" {
			errs = append(errs, errors.New("scenario.user_persona is required"))
		}
		if cfg.Scenario.ExpectedOutcome == "" {
			errs = append(errs, errors.New("scenario.expected_outcome is required"))
		}
		if cfg.Scenario.NumSimulations < 1 {
			errs = append(errs, fmt.Errorf("scenario.num_simulations %d must be at least 1", cfg.Scenario.NumSimulations))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// [ValidProviderNames].
func validateProviderName(role, name string) {
	if name == "" {
		return
	}
	if slices.Contains(ValidProviderNames, strings.ToLower(name)) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"role", role,
		"name", name,
		"known", ValidProviderNames,
	)
}
