package simulate

// Conversation roles as recorded in simulated transcripts.
const (
	RoleUser  = "USER"
	RoleAgent = "AGENT"
)

// Hangup reasons recorded on a finished simulation.
const (
	ReasonMaxTurnsReached    = "max_turns_reached"
	ReasonUserSimulatorEnded = "user_simulator_ended"
	ReasonHangupTriggered    = "hangup_logic_triggered"
)

// AgentConfig describes the candidate agent under test. It mirrors the
// fields a telephony platform exposes for a deployed voice agent.
type AgentConfig struct {
	AgentID        string  `json:"agent_id" yaml:"agent_id"`
	AgentName      string  `json:"agent_name" yaml:"agent_name"`
	WelcomeMessage string  `json:"welcome_message" yaml:"welcome_message"`
	SystemPrompt   string  `json:"system_prompt" yaml:"system_prompt"`
	HangupPrompt   string  `json:"hangup_prompt" yaml:"hangup_prompt"`
	LLMFamily      string  `json:"llm_family" yaml:"llm_family"`
	LLMModel       string  `json:"llm_model" yaml:"llm_model"`
	Temperature    float64 `json:"temperature" yaml:"temperature"`
	MaxTokens      int     `json:"max_tokens" yaml:"max_tokens"`
	TopP           float64 `json:"top_p" yaml:"top_p"`
}

// Scenario frames the conversation the user simulator acts out against the
// agent. All fields feed the user simulator and judge prompts verbatim.
type Scenario struct {
	AgentOverview   string `json:"agent_overview" yaml:"agent_overview"`
	UserPersona     string `json:"user_persona" yaml:"user_persona"`
	Situation       string `json:"situation" yaml:"situation"`
	PrimaryLanguage string `json:"primary_language" yaml:"primary_language"`
	ExpectedOutcome string `json:"expected_outcome" yaml:"expected_outcome"`
}

// Turn is one entry in a simulated transcript. LatencyMS is set only on
// AGENT turns and measures the wall-clock duration of the agent LLM call.
type Turn struct {
	Role        string   `json:"role"`
	Content     string   `json:"content"`
	TimestampMS int64    `json:"timestamp_ms"`
	LatencyMS   *float64 `json:"latency_ms,omitempty"`
}

// Result is the outcome of one simulated conversation.
type Result struct {
	// Transcript is the full ordered turn list, welcome message included.
	Transcript []Turn `json:"transcript"`

	// Latencies holds the agent response latencies in milliseconds, one per
	// USER turn that received a reply.
	Latencies []float64 `json:"latencies"`

	// TotalTurns counts USER turns in the transcript.
	TotalTurns int `json:"total_turns"`

	// HangupReason is one of the Reason* constants.
	HangupReason string `json:"hangup_reason"`
}
