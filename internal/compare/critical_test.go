package compare

import (
	"strings"
	"testing"
)

func healthyAggregate() Aggregate {
	return Aggregate{
		AgentID:               "agent-1",
		AgentName:             "Scheduler",
		TotalSimulations:      3,
		SuccessfulSimulations: 3,
		AccuracyMean:          ptr(0.9),
		AccuracyStd:           ptr(0.05),
		HumanlikeMean:         ptr(8.0),
		HumanlikeStd:          ptr(0.4),
		OutcomeMean:           ptr(8.5),
		OutcomeStd:            ptr(0.3),
		AvgTurnsMean:          ptr(5.0),
		AvgTurnsStd:           ptr(1.0),
		LatencyP99Mean:        ptr(1.5),
		HangupSuccessRate:     0.9,
	}
}

func TestAnalyzeCriticalIssuesHealthy(t *testing.T) {
	t.Parallel()

	if issues := AnalyzeCriticalIssues(healthyAggregate(), nil); len(issues) != 0 {
		t.Errorf("healthy agent must raise no issues, got %+v", issues)
	}
}

func TestAnalyzeCriticalIssuesTwoCritical(t *testing.T) {
	t.Parallel()

	agg := healthyAggregate()
	agg.AccuracyMean = ptr(0.3)
	agg.HangupSuccessRate = 0.2
	agg.HumanlikeMean = ptr(9.0)

	issues := AnalyzeCriticalIssues(agg, nil)
	if len(issues) != 2 {
		t.Fatalf("want exactly 2 issues, got %d: %+v", len(issues), issues)
	}
	for _, issue := range issues {
		if issue.Severity != SeverityCritical {
			t.Errorf("want only critical issues, got %q (%s)", issue.Severity, issue.Title)
		}
		if issue.Severity == SeverityMedium {
			t.Errorf("no medium issue may appear: %s", issue.Title)
		}
	}
	if issues[0].Title != "Very Low Hangup Success Rate" {
		t.Errorf("unexpected first issue %q", issues[0].Title)
	}
	if issues[1].Title != "Very Low Turn Accuracy" {
		t.Errorf("unexpected second issue %q", issues[1].Title)
	}
}

func TestAnalyzeCriticalIssuesSeverityGrades(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		mutate   func(*Aggregate)
		title    string
		severity string
	}{
		{
			name:     "hangup high",
			mutate:   func(a *Aggregate) { a.HangupSuccessRate = 0.5 },
			title:    "Low Hangup Success Rate",
			severity: SeverityHigh,
		},
		{
			name:     "accuracy high",
			mutate:   func(a *Aggregate) { a.AccuracyMean = ptr(0.65) },
			title:    "Low Turn Accuracy",
			severity: SeverityHigh,
		},
		{
			name:     "latency high",
			mutate:   func(a *Aggregate) { a.LatencyP99Mean = ptr(4.2) },
			title:    "High P99 Latency",
			severity: SeverityHigh,
		},
		{
			name:     "humanlike medium",
			mutate:   func(a *Aggregate) { a.HumanlikeMean = ptr(4.0) },
			title:    "Low Human-like Score",
			severity: SeverityMedium,
		},
		{
			name:     "outcome medium",
			mutate:   func(a *Aggregate) { a.OutcomeMean = ptr(6.0) },
			title:    "Low Outcome Orientation Score",
			severity: SeverityMedium,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			agg := healthyAggregate()
			tc.mutate(&agg)

			issues := AnalyzeCriticalIssues(agg, nil)
			if len(issues) != 1 {
				t.Fatalf("want 1 issue, got %d: %+v", len(issues), issues)
			}
			if issues[0].Title != tc.title || issues[0].Severity != tc.severity {
				t.Errorf("want %q/%q, got %q/%q", tc.title, tc.severity, issues[0].Title, issues[0].Severity)
			}
		})
	}
}

func TestAnalyzeCriticalIssuesZeroVariance(t *testing.T) {
	t.Parallel()

	agg := healthyAggregate()
	agg.AccuracyStd = ptr(0.0)
	agg.HumanlikeStd = ptr(0.0005)

	issues := AnalyzeCriticalIssues(agg, nil)
	if len(issues) != 1 {
		t.Fatalf("want 1 issue, got %d: %+v", len(issues), issues)
	}
	if issues[0].Title != "Zero Variance in Multiple Metrics" || issues[0].Severity != SeverityHigh {
		t.Errorf("unexpected issue %+v", issues[0])
	}
	if !strings.Contains(issues[0].Description, "accuracy, humanlike") {
		t.Errorf("description must name the flat metrics, got %q", issues[0].Description)
	}
}

func TestAnalyzeCriticalIssuesSingleFlatMetricOK(t *testing.T) {
	t.Parallel()

	agg := healthyAggregate()
	agg.AccuracyStd = ptr(0.0)

	if issues := AnalyzeCriticalIssues(agg, nil); len(issues) != 0 {
		t.Errorf("one flat metric alone must not fire, got %+v", issues)
	}
}

func TestAnalyzeCriticalIssuesTopThree(t *testing.T) {
	t.Parallel()

	agg := healthyAggregate()
	agg.HangupSuccessRate = 0.2   // critical
	agg.AccuracyMean = ptr(0.3)   // critical
	agg.LatencyP99Mean = ptr(5.0) // high
	agg.HumanlikeMean = ptr(3.0)  // medium
	agg.OutcomeMean = ptr(4.0)    // medium

	issues := AnalyzeCriticalIssues(agg, nil)
	if len(issues) != 3 {
		t.Fatalf("want top 3 issues, got %d", len(issues))
	}
	if issues[0].Severity != SeverityCritical || issues[1].Severity != SeverityCritical {
		t.Errorf("criticals must sort first: %+v", issues)
	}
	if issues[2].Severity != SeverityHigh {
		t.Errorf("third issue must be the high one, got %q (%s)", issues[2].Severity, issues[2].Title)
	}
}

func TestAnalyzeCriticalIssuesPoorTurnExamples(t *testing.T) {
	t.Parallel()

	agg := healthyAggregate()
	agg.AccuracyMean = ptr(0.3)

	poor := []PoorTurn{
		{Turn: 3, Accuracy: 2, Reasoning: "Ignored the user's question entirely."},
		{Turn: 5, Accuracy: 4, Reasoning: "Quoted the wrong opening hours."},
		{Turn: 7, Accuracy: 5, Reasoning: "Repeated itself."},
	}

	issues := AnalyzeCriticalIssues(agg, poor)
	if len(issues) != 1 {
		t.Fatalf("want 1 issue, got %d", len(issues))
	}
	desc := issues[0].Description
	if !strings.Contains(desc, "Turn 3 (accuracy: 2/10)") || !strings.Contains(desc, "Turn 5 (accuracy: 4/10)") {
		t.Errorf("description must include the two worst turns, got %q", desc)
	}
	if strings.Contains(desc, "Turn 7") {
		t.Errorf("description must cap examples at two, got %q", desc)
	}
	if len(issues[0].PoorTurns) != 3 {
		t.Errorf("issue must carry all supplied poor turns, got %d", len(issues[0].PoorTurns))
	}
}
