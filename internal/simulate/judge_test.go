package simulate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sonavox/callaudit/pkg/provider/llm"
	"github.com/sonavox/callaudit/pkg/provider/llm/mock"
)

func judgeTurns() []Turn {
	return []Turn{
		{Role: RoleAgent, Content: "Hi, this is the clinic."},
		{Role: RoleUser, Content: "I want to reschedule."},
		{Role: RoleAgent, Content: "Done, see you Thursday."},
	}
}

func TestJudgeEvaluate(t *testing.T) {
	t.Parallel()

	prov := &mock.Provider{Response: &llm.CompletionResponse{Content: `{
		"accuracy": 8.5,
		"humanlike": 7.0,
		"outcome": 9.0,
		"accuracy_reasoning": "Handled the request directly.",
		"humanlike_reasoning": "Slightly terse but natural.",
		"outcome_reasoning": "Appointment was rescheduled."
	}`}}

	j := NewJudge(prov, nil)
	jd := j.Evaluate(context.Background(), judgeTurns(), testScenario())

	if jd.Degraded {
		t.Fatal("judgement must not be degraded")
	}
	if jd.Accuracy != 8.5 || jd.Humanlike != 7.0 || jd.Outcome != 9.0 {
		t.Errorf("unexpected scores %+v", jd)
	}
	if jd.OutcomeReasoning != "Appointment was rescheduled." {
		t.Errorf("unexpected outcome reasoning %q", jd.OutcomeReasoning)
	}
}

func TestJudgeEvaluateJSONWithProse(t *testing.T) {
	t.Parallel()

	prov := &mock.Provider{Response: &llm.CompletionResponse{Content: "Here is my evaluation:\n" +
		`{"accuracy": 6, "humanlike": 5, "outcome": 4, "accuracy_reasoning": "ok", "humanlike_reasoning": "ok", "outcome_reasoning": "ok"}` +
		"\nLet me know if you need more detail."}}

	j := NewJudge(prov, nil)
	jd := j.Evaluate(context.Background(), judgeTurns(), testScenario())

	if jd.Degraded {
		t.Fatal("judgement must not be degraded")
	}
	if jd.Accuracy != 6 || jd.Humanlike != 5 || jd.Outcome != 4 {
		t.Errorf("unexpected scores %+v", jd)
	}
}

func TestJudgeEvaluateDegraded(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		prov *mock.Provider
	}{
		{"provider error", &mock.Provider{Err: errors.New("backend down")}},
		{"no json", &mock.Provider{Response: &llm.CompletionResponse{Content: "I cannot evaluate this."}}},
		{"missing field", &mock.Provider{Response: &llm.CompletionResponse{
			Content: `{"accuracy": 8, "humanlike": 7}`,
		}}},
		{"malformed json", &mock.Provider{Response: &llm.CompletionResponse{
			Content: `{"accuracy": 8,`,
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			j := NewJudge(tc.prov, nil)
			jd := j.Evaluate(context.Background(), judgeTurns(), testScenario())

			if !jd.Degraded {
				t.Fatal("want degraded judgement")
			}
			if jd.Accuracy != 5.0 || jd.Humanlike != 5.0 || jd.Outcome != 5.0 {
				t.Errorf("degraded scores must all be 5.0, got %+v", jd)
			}
		})
	}
}

func TestJudgePromptShape(t *testing.T) {
	t.Parallel()

	prov := &mock.Provider{Response: &llm.CompletionResponse{
		Content: `{"accuracy": 5, "humanlike": 5, "outcome": 5}`,
	}}
	j := NewJudge(prov, nil)
	j.Evaluate(context.Background(), judgeTurns(), testScenario())

	req := prov.Calls[0].Req
	if req.SystemPrompt != judgeSystemPrompt {
		t.Errorf("unexpected system prompt %q", req.SystemPrompt)
	}
	if req.MaxTokens != judgeMaxTokens {
		t.Errorf("want max tokens %d, got %d", judgeMaxTokens, req.MaxTokens)
	}
	prompt := req.Messages[0].Content
	for _, want := range []string{
		"AGENT: Hi, this is the clinic.",
		"USER: I want to reschedule.",
		"Expected Outcome: Appointment moved to next week",
		"**ACCURACY (0-10)**",
		"**HUMANLIKE (0-10)**",
		"**OUTCOME (0-10)**",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
