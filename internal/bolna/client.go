// Package bolna fetches agent configurations from the Bolna telephony
// platform API and maps them onto the simulator's agent config.
package bolna

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sonavox/callaudit/internal/compare"
	"github.com/sonavox/callaudit/internal/simulate"
)

// defaultBaseURL is the production Bolna API endpoint.
const defaultBaseURL = "https://api.bolna.ai"

// requestTimeout bounds one config fetch.
const requestTimeout = 10 * time.Second

// Sampling defaults applied when the platform config omits them.
const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1000
	defaultTopP        = 1.0
)

var _ compare.ConfigResolver = (*Client)(nil)

// Client talks to the Bolna API. It satisfies [compare.ConfigResolver] so the
// orchestrator can resolve agent IDs directly through it.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, primarily for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Client authenticating with apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("bolna: api key is required")
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: requestTimeout},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// agentResponse mirrors the subset of the Bolna agent payload we consume.
type agentResponse struct {
	AgentName           string                     `json:"agent_name"`
	AgentWelcomeMessage string                     `json:"agent_welcome_message"`
	AgentPrompts        map[string]json.RawMessage `json:"agent_prompts"`
	Tasks               []struct {
		ToolsConfig struct {
			LLMAgent struct {
				LLMConfig struct {
					Family      string   `json:"family"`
					Model       string   `json:"model"`
					Temperature *float64 `json:"temperature"`
					MaxTokens   *int     `json:"max_tokens"`
					TopP        *float64 `json:"top_p"`
				} `json:"llm_config"`
			} `json:"llm_agent"`
		} `json:"tools_config"`
		TaskConfig struct {
			CallCancellationPrompt string `json:"call_cancellation_prompt"`
		} `json:"task_config"`
	} `json:"tasks"`
}

// Fetch implements [compare.ConfigResolver]. It retrieves the agent's full
// configuration from the Bolna API and maps it onto [simulate.AgentConfig].
// The first configured task supplies the LLM settings and the hangup prompt.
func (c *Client) Fetch(ctx context.Context, agentID string) (simulate.AgentConfig, error) {
	url := c.baseURL + "/agent/" + agentID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return simulate.AgentConfig{}, fmt.Errorf("bolna: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.log.Info("fetching agent config", "agent_id", agentID)

	resp, err := c.http.Do(req)
	if err != nil {
		return simulate.AgentConfig{}, fmt.Errorf("bolna: fetch agent %q: %w", agentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return simulate.AgentConfig{}, fmt.Errorf("bolna: fetch agent %q: unexpected status %d", agentID, resp.StatusCode)
	}

	var data agentResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return simulate.AgentConfig{}, fmt.Errorf("bolna: decode agent %q: %w", agentID, err)
	}
	if len(data.Tasks) == 0 {
		return simulate.AgentConfig{}, fmt.Errorf("bolna: agent %q has no tasks configured", agentID)
	}

	llm := data.Tasks[0].ToolsConfig.LLMAgent.LLMConfig

	family := llm.Family
	if family == "" {
		family = "unknown"
	}
	// Azure deployments report models as "azure/<name>".
	model := strings.TrimPrefix(llm.Model, "azure/")

	name := data.AgentName
	if name == "" {
		name = agentID
	}

	cfg := simulate.AgentConfig{
		AgentID:        agentID,
		AgentName:      name,
		WelcomeMessage: data.AgentWelcomeMessage,
		SystemPrompt:   systemPrompt(data.AgentPrompts),
		HangupPrompt:   data.Tasks[0].TaskConfig.CallCancellationPrompt,
		LLMFamily:      family,
		LLMModel:       model,
		Temperature:    defaultTemperature,
		MaxTokens:      defaultMaxTokens,
		TopP:           defaultTopP,
	}
	if llm.Temperature != nil {
		cfg.Temperature = *llm.Temperature
	}
	if llm.MaxTokens != nil {
		cfg.MaxTokens = *llm.MaxTokens
	}
	if llm.TopP != nil {
		cfg.TopP = *llm.TopP
	}

	c.log.Info("fetched agent config",
		"agent_id", agentID, "agent_name", cfg.AgentName, "llm_family", cfg.LLMFamily)
	return cfg, nil
}

// systemPrompt extracts the first task's system prompt from the agent_prompts
// block.
func systemPrompt(prompts map[string]json.RawMessage) string {
	raw, ok := prompts["task_1"]
	if !ok {
		return ""
	}
	var task struct {
		SystemPrompt string `json:"system_prompt"`
	}
	if err := json.Unmarshal(raw, &task); err != nil {
		return ""
	}
	return task.SystemPrompt
}
