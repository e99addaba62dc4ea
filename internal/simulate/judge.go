package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sonavox/callaudit/pkg/provider/llm"
)

const judgeMaxTokens = 2000

const judgeSystemPrompt = "You are an expert evaluator of conversational AI. You provide accurate, critical assessments."

// degradedScore is assigned to every dimension when the judge fails, so a
// broken judge never zeroes out or inflates an agent's composite.
const degradedScore = 5.0

// Judgement is the judge's verdict on one simulated conversation. All scores
// are on a 0 to 10 scale.
type Judgement struct {
	Accuracy  float64 `json:"accuracy"`
	Humanlike float64 `json:"humanlike"`
	Outcome   float64 `json:"outcome"`

	AccuracyReasoning  string `json:"accuracy_reasoning"`
	HumanlikeReasoning string `json:"humanlike_reasoning"`
	OutcomeReasoning   string `json:"outcome_reasoning"`

	// Degraded is true when the judge call or its parsing failed and the
	// scores are the neutral fallback rather than a real evaluation.
	Degraded bool `json:"degraded,omitempty"`
}

// Judge evaluates a whole conversation in a single LLM call, scoring three
// dimensions: accuracy, humanlikeness and outcome achievement.
type Judge struct {
	provider llm.Provider
	log      *slog.Logger
}

// NewJudge builds a judge over the given provider. A nil logger falls back
// to slog.Default.
func NewJudge(provider llm.Provider, log *slog.Logger) *Judge {
	if log == nil {
		log = slog.Default()
	}
	return &Judge{provider: provider, log: log}
}

// Evaluate scores the transcript against the scenario. It never returns an
// error: any failure yields a degraded Judgement with neutral scores.
func (j *Judge) Evaluate(ctx context.Context, turns []Turn, scenario Scenario) *Judgement {
	prompt := j.buildPrompt(turns, scenario)

	resp, err := j.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: judgeSystemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:    judgeMaxTokens,
	})
	if err != nil {
		j.log.Error("judge call failed, using degraded scores", "error", err)
		return degradedJudgement("judge call failed")
	}

	jd, err := parseJudgement(resp.Content)
	if err != nil {
		j.log.Error("judge response unparseable, using degraded scores", "error", err)
		return degradedJudgement("judge response unparseable")
	}

	j.log.Debug("conversation judged",
		"accuracy", jd.Accuracy, "humanlike", jd.Humanlike, "outcome", jd.Outcome)
	return jd
}

func degradedJudgement(reason string) *Judgement {
	return &Judgement{
		Accuracy:           degradedScore,
		Humanlike:          degradedScore,
		Outcome:            degradedScore,
		AccuracyReasoning:  reason + " - default score",
		HumanlikeReasoning: reason + " - default score",
		OutcomeReasoning:   reason + " - default score",
		Degraded:           true,
	}
}

// parseJudgement extracts the judge's JSON verdict from a raw response that
// may carry prose around it. All three scores must be present.
func parseJudgement(raw string) (*Judgement, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &fields); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}
	for _, k := range []string{"accuracy", "humanlike", "outcome"} {
		if _, ok := fields[k]; !ok {
			return nil, fmt.Errorf("verdict missing %q", k)
		}
	}

	var jd Judgement
	if err := json.Unmarshal([]byte(raw[start:end+1]), &jd); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}
	return &jd, nil
}

func (j *Judge) buildPrompt(turns []Turn, scenario Scenario) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		role := t.Role
		if role == "" {
			role = "UNKNOWN"
		}
		lines = append(lines, role+": "+t.Content)
	}
	conversation := strings.Join(lines, "\n")

	lang := scenario.PrimaryLanguage
	if lang == "" {
		lang = "the target language"
	}

	var b strings.Builder
	b.WriteString("You are evaluating a voice AI conversation across three critical dimensions. Analyze the ENTIRE conversation carefully.\n\n")
	b.WriteString("**SCENARIO CONTEXT**:\n")
	fmt.Fprintf(&b, "- Agent Overview: %s\n", scenario.AgentOverview)
	fmt.Fprintf(&b, "- User Persona: %s\n", scenario.UserPersona)
	fmt.Fprintf(&b, "- Situation: %s\n", scenario.Situation)
	fmt.Fprintf(&b, "- Language: %s\n", scenario.PrimaryLanguage)
	fmt.Fprintf(&b, "- Expected Outcome: %s\n\n", scenario.ExpectedOutcome)
	fmt.Fprintf(&b, "**CONVERSATION TRANSCRIPT**:\n%s\n\n", conversation)
	b.WriteString("**EVALUATION INSTRUCTIONS**:\n\n")
	b.WriteString("1. **ACCURACY (0-10)**: Evaluate how well the agent handled the scenario across ALL turns\n")
	b.WriteString("   - Did the agent understand the context correctly?\n")
	b.WriteString("   - Were responses appropriate for each turn?\n")
	b.WriteString("   - Did the agent stay on topic and address user concerns?\n")
	b.WriteString("   - Were there any major mistakes, misunderstandings, or inappropriate responses?\n\n")
	b.WriteString("2. **HUMANLIKE (0-10)**: Evaluate how natural and human-like the conversation felt\n")
	b.WriteString("   - Natural conversational flow and pacing\n")
	b.WriteString("   - Appropriate empathy and emotional tone\n")
	b.WriteString("   - No robotic patterns, awkward phrasing, or repetitive language\n")
	fmt.Fprintf(&b, "   - Culturally and linguistically appropriate (especially for %s)\n\n", lang)
	b.WriteString("3. **OUTCOME (0-10)**: Evaluate how well the expected outcome was achieved\n")
	b.WriteString("   - 0-2: Outcome not achieved, conversation went off track\n")
	b.WriteString("   - 3-4: Minor progress but largely unsuccessful\n")
	b.WriteString("   - 5-6: Partial achievement, some key aspects addressed\n")
	b.WriteString("   - 7-8: Most of the outcome achieved with minor gaps\n")
	b.WriteString("   - 9-10: Expected outcome fully achieved\n\n")
	b.WriteString("**IMPORTANT**: Be realistic and critical. Most real conversations will have issues. Don't inflate scores.\n\n")
	b.WriteString("Return ONLY a JSON object with this exact structure:\n")
	b.WriteString("{\n")
	b.WriteString("    \"accuracy\": <0-10 float>,\n")
	b.WriteString("    \"humanlike\": <0-10 float>,\n")
	b.WriteString("    \"outcome\": <0-10 float>,\n")
	b.WriteString("    \"accuracy_reasoning\": \"<2-3 sentences explaining the accuracy score>\",\n")
	b.WriteString("    \"humanlike_reasoning\": \"<2-3 sentences explaining the humanlike score>\",\n")
	b.WriteString("    \"outcome_reasoning\": \"<2-3 sentences explaining the outcome score>\"\n")
	b.WriteString("}")
	return b.String()
}
