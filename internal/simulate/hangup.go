package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sonavox/callaudit/pkg/provider/llm"
)

// Sampling parameters for the hangup oracle. Low temperature keeps the
// yes/no verdict stable across runs.
const (
	hangupTemperature = 0.2
	hangupMaxTokens   = 50
)

// hangupKeywords are matched against the raw response when the oracle does
// not return parseable JSON.
var hangupKeywords = []string{"yes", "hang up", "end call", "terminate"}

// HangupOracle decides whether a conversation has reached the point where a
// real deployment would disconnect the call. It wraps the agent's hangup
// prompt around the conversation and asks a small model for a yes/no verdict.
type HangupOracle struct {
	provider llm.Provider
}

// NewHangupOracle builds a hangup oracle over the given provider.
func NewHangupOracle(provider llm.Provider) *HangupOracle {
	return &HangupOracle{provider: provider}
}

// ShouldHangup reports whether the conversation should end. An empty
// hangupPrompt disables the check. Any provider or parse failure yields
// (false, err); callers treat errors as "keep going".
func (h *HangupOracle) ShouldHangup(ctx context.Context, hangupPrompt string, history []Turn) (bool, error) {
	if hangupPrompt == "" {
		return false, nil
	}

	parts := make([]string, 0, len(history))
	for _, t := range history {
		role := "user"
		if t.Role == RoleAgent {
			role = "assistant"
		}
		parts = append(parts, role+": "+t.Content)
	}

	prompt := fmt.Sprintf("%s\nRespond only in this JSON format: {\"hangup\": \"Yes\" or \"No\"}\n\nConversation:\n%s",
		hangupPrompt, strings.Join(parts, "\n"))

	resp, err := h.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Temperature: hangupTemperature,
		MaxTokens:   hangupMaxTokens,
	})
	if err != nil {
		return false, fmt.Errorf("simulate: hangup check: %w", err)
	}

	return parseHangupVerdict(resp.Content), nil
}

// parseHangupVerdict interprets the oracle's raw response. JSON of the form
// {"hangup": "Yes"} wins; plain text falls back to keyword matching.
func parseHangupVerdict(raw string) bool {
	text := strings.TrimSpace(raw)

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err == nil {
		obj, ok := decoded.(map[string]any)
		if !ok {
			return false
		}
		v := strings.ToLower(fmt.Sprint(obj["hangup"]))
		return v == "yes" || v == "true" || v == "1"
	}

	lower := strings.ToLower(text)
	for _, kw := range hangupKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
