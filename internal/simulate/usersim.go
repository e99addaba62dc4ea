package simulate

import (
	"context"
	"fmt"
	"strings"

	"github.com/sonavox/callaudit/pkg/provider/llm"
)

// completeSentinel is the literal the user simulator returns when it judges
// the conversation over. Matched as a substring of the raw response.
const completeSentinel = "CONVERSATION_COMPLETE"

// userSimDefaults are the sampling parameters for the user simulator model.
const (
	userSimTemperature = 0.7
	userSimMaxTokens   = 200
)

// UserSimulator generates user turns one at a time, staying in character
// with the scenario's persona and steering towards the expected outcome.
type UserSimulator struct {
	provider llm.Provider
	scenario Scenario
}

// NewUserSimulator builds a user simulator over the given provider.
func NewUserSimulator(provider llm.Provider, scenario Scenario) *UserSimulator {
	return &UserSimulator{provider: provider, scenario: scenario}
}

// NextTurn generates the next user message for the conversation so far.
// done is true when the simulator decided the conversation is over, in which
// case msg is empty.
func (u *UserSimulator) NextTurn(ctx context.Context, history []Turn) (msg string, done bool, err error) {
	prompt := u.buildPrompt(history)

	resp, err := u.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Temperature: userSimTemperature,
		MaxTokens:   userSimMaxTokens,
	})
	if err != nil {
		return "", false, fmt.Errorf("simulate: user turn: %w", err)
	}

	text := strings.TrimSpace(resp.Content)
	if strings.Contains(text, completeSentinel) {
		return "", true, nil
	}
	return text, false, nil
}

func (u *UserSimulator) buildPrompt(history []Turn) string {
	var b strings.Builder
	b.WriteString("You are simulating a realistic user in a voice conversation scenario.\n\n")
	fmt.Fprintf(&b, "**User Persona**: %s\n\n", u.scenario.UserPersona)
	fmt.Fprintf(&b, "**Situation**: %s\n\n", u.scenario.Situation)
	fmt.Fprintf(&b, "**Expected Outcome**: %s\n\n", u.scenario.ExpectedOutcome)
	fmt.Fprintf(&b, "**Agent Overview**: %s\n\n", u.scenario.AgentOverview)
	fmt.Fprintf(&b, "**Language**: %s\n\n", u.scenario.PrimaryLanguage)
	fmt.Fprintf(&b, "**Conversation So Far**:\n%s\n\n", formatHistory(history))
	b.WriteString("**Instructions**:\n")
	fmt.Fprintf(&b, "1. Generate the NEXT realistic user response in %s\n", u.scenario.PrimaryLanguage)
	b.WriteString("2. Stay in character as the user persona described above\n")
	b.WriteString("3. Respond naturally to the agent's last message\n")
	b.WriteString("4. Work towards achieving the expected outcome\n")
	b.WriteString("5. Keep responses concise and conversational (1-3 sentences)\n")
	fmt.Fprintf(&b, "6. If the agent has clearly ended the conversation or achieved the outcome, return exactly: %q\n\n", completeSentinel)
	b.WriteString("**Return ONLY the user's next message as plain text (no formatting, no prefixes).**\n")
	return b.String()
}

// formatHistory renders the conversation as "ROLE: content" lines.
func formatHistory(history []Turn) string {
	if len(history) == 0 {
		return "(No conversation yet - this will be the first user message)"
	}
	lines := make([]string, 0, len(history))
	for _, t := range history {
		lines = append(lines, t.Role+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}
