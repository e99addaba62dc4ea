package compare

import (
	"fmt"
	"sort"
	"strings"
)

// Issue severities, ordered worst first.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
)

// Thresholds for the critical-issue checks.
const (
	accuracyThresholdCritical   = 0.5
	accuracyThresholdHigh       = 0.7
	hangupRateThresholdCritical = 0.4
	hangupRateThresholdHigh     = 0.6
	latencyP99ThresholdHigh     = 3.0
	humanlikeThresholdMedium    = 5.0
	outcomeThresholdMedium      = 7.0
	zeroVarianceThreshold       = 0.001
)

// maxIssues caps how many issues a report carries.
const maxIssues = 3

// Issue is one actionable finding about an agent's aggregate performance.
type Issue struct {
	Severity       string     `json:"severity"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	MetricValue    string     `json:"metric_value"`
	Threshold      string     `json:"threshold"`
	RecommendedFix string     `json:"recommended_fix"`
	PoorTurns      []PoorTurn `json:"poor_turns,omitempty"`
}

// PoorTurn is a concrete low-accuracy turn example attached to an accuracy
// issue.
type PoorTurn struct {
	Turn      int     `json:"turn"`
	Accuracy  float64 `json:"accuracy"`
	Reasoning string  `json:"reasoning"`
}

// AnalyzeCriticalIssues evaluates six independent checks against an agent's
// aggregate and returns at most the three worst issues, sorted critical,
// high, medium. poorTurns, when available, enriches the accuracy issue with
// concrete examples. Pure function, no external calls.
func AnalyzeCriticalIssues(agg Aggregate, poorTurns []PoorTurn) []Issue {
	var issues []Issue

	if issue := checkHangupRate(agg); issue != nil {
		issues = append(issues, *issue)
	}
	if issue := checkAccuracy(agg, poorTurns); issue != nil {
		issues = append(issues, *issue)
	}
	if issue := checkZeroVariance(agg); issue != nil {
		issues = append(issues, *issue)
	}
	if issue := checkLatency(agg); issue != nil {
		issues = append(issues, *issue)
	}
	if issue := checkHumanlike(agg); issue != nil {
		issues = append(issues, *issue)
	}
	if issue := checkOutcome(agg); issue != nil {
		issues = append(issues, *issue)
	}

	order := map[string]int{SeverityCritical: 0, SeverityHigh: 1, SeverityMedium: 2}
	sort.SliceStable(issues, func(i, j int) bool {
		return order[issues[i].Severity] < order[issues[j].Severity]
	})

	if len(issues) > maxIssues {
		issues = issues[:maxIssues]
	}
	return issues
}

func checkHangupRate(agg Aggregate) *Issue {
	// Agents with no successful runs carry no meaningful rate.
	if agg.SuccessfulSimulations == 0 {
		return nil
	}
	rate := agg.HangupSuccessRate

	switch {
	case rate < hangupRateThresholdCritical:
		return &Issue{
			Severity: SeverityCritical,
			Title:    "Very Low Hangup Success Rate",
			Description: fmt.Sprintf("Only %.0f%% of conversations ended properly. "+
				"Most conversations are hitting max turn limits instead of natural endings.", rate*100),
			MetricValue: fmt.Sprintf("%.0f%%", rate*100),
			Threshold:   fmt.Sprintf("%.0f%%", hangupRateThresholdCritical*100),
			RecommendedFix: "Review and strengthen hangup prompt logic. Add explicit conversation " +
				"ending markers. Test with various conversation endings (refusals, " +
				"commitments, goodbyes). Consider timeout-based fallback detection.",
		}
	case rate < hangupRateThresholdHigh:
		return &Issue{
			Severity: SeverityHigh,
			Title:    "Low Hangup Success Rate",
			Description: fmt.Sprintf("Only %.0f%% of conversations ended properly. "+
				"Agent failing to detect when conversations should end.", rate*100),
			MetricValue: fmt.Sprintf("%.0f%%", rate*100),
			Threshold:   fmt.Sprintf("%.0f%%", hangupRateThresholdHigh*100),
			RecommendedFix: "Improve hangup prompt to better recognize conversation completion signals. " +
				"Add more explicit end-of-conversation patterns.",
		}
	}
	return nil
}

func checkAccuracy(agg Aggregate, poorTurns []PoorTurn) *Issue {
	if agg.AccuracyMean == nil {
		return nil
	}
	mean := *agg.AccuracyMean

	var examples string
	if len(poorTurns) > 0 {
		parts := make([]string, 0, 2)
		for _, t := range poorTurns[:min(2, len(poorTurns))] {
			reasoning := t.Reasoning
			if len(reasoning) > 100 {
				reasoning = reasoning[:100]
			}
			parts = append(parts, fmt.Sprintf("Turn %d (accuracy: %g/10): %s", t.Turn, t.Accuracy, reasoning))
		}
		examples = " Examples of poor turns: " + strings.Join(parts, "; ")
	}

	switch {
	case mean < accuracyThresholdCritical:
		return &Issue{
			Severity: SeverityCritical,
			Title:    "Very Low Turn Accuracy",
			Description: fmt.Sprintf("Average accuracy of %.1f%% is critically low. "+
				"Agent making frequent incorrect decisions and not following instructions properly.", mean*100) + examples,
			MetricValue: fmt.Sprintf("%.1f%%", mean*100),
			Threshold:   fmt.Sprintf("%.0f%%", accuracyThresholdCritical*100),
			RecommendedFix: "Investigate turn accuracy validator logic. Review validation criteria - may be too strict. " +
				"Check if language handling needs improvement. Add detailed logging " +
				"to identify which specific turns are failing validation.",
			PoorTurns: poorTurns,
		}
	case mean < accuracyThresholdHigh:
		return &Issue{
			Severity: SeverityHigh,
			Title:    "Low Turn Accuracy",
			Description: fmt.Sprintf("Average accuracy of %.1f%% is below acceptable threshold. "+
				"Agent responses not consistently meeting quality standards.", mean*100) + examples,
			MetricValue: fmt.Sprintf("%.1f%%", mean*100),
			Threshold:   fmt.Sprintf("%.0f%%", accuracyThresholdHigh*100),
			RecommendedFix: "Review agent prompt quality and conversation flow adherence. " +
				"Check validation logic for potential issues. Improve agent training or prompt engineering.",
			PoorTurns: poorTurns,
		}
	}
	return nil
}

func checkZeroVariance(agg Aggregate) *Issue {
	var flat []string
	if agg.AccuracyStd != nil && *agg.AccuracyStd < zeroVarianceThreshold {
		flat = append(flat, "accuracy")
	}
	if agg.HumanlikeStd != nil && *agg.HumanlikeStd < zeroVarianceThreshold {
		flat = append(flat, "humanlike")
	}
	if agg.AvgTurnsStd != nil && *agg.AvgTurnsStd < zeroVarianceThreshold {
		flat = append(flat, "turn count")
	}

	if len(flat) < 2 {
		return nil
	}
	return &Issue{
		Severity: SeverityHigh,
		Title:    "Zero Variance in Multiple Metrics",
		Description: fmt.Sprintf("Suspicious zero variance detected in %s. "+
			"This suggests possible duplicate simulation data or overly deterministic behavior.",
			strings.Join(flat, ", ")),
		MetricValue: fmt.Sprintf("%d metrics with std=0", len(flat)),
		Threshold:   "Expected natural variation",
		RecommendedFix: "Investigate aggregation logic for potential bugs. Verify simulations are actually " +
			"different and not being duplicated. Check if LLM temperature is too low causing " +
			"deterministic responses. Add run-level uniqueness validation.",
	}
}

func checkLatency(agg Aggregate) *Issue {
	if agg.LatencyP99Mean == nil || *agg.LatencyP99Mean <= latencyP99ThresholdHigh {
		return nil
	}
	return &Issue{
		Severity: SeverityHigh,
		Title:    "High P99 Latency",
		Description: fmt.Sprintf("P99 latency of %.2fs is above acceptable threshold. "+
			"Slowest responses may cause poor user experience.", *agg.LatencyP99Mean),
		MetricValue: fmt.Sprintf("%.2fs", *agg.LatencyP99Mean),
		Threshold:   fmt.Sprintf("%.1fs", latencyP99ThresholdHigh),
		RecommendedFix: "Optimize agent response generation. Consider using faster LLM model. " +
			"Review token generation settings (max_tokens, temperature). " +
			"Check for network or API bottlenecks.",
	}
}

func checkHumanlike(agg Aggregate) *Issue {
	if agg.HumanlikeMean == nil || *agg.HumanlikeMean >= humanlikeThresholdMedium {
		return nil
	}
	return &Issue{
		Severity: SeverityMedium,
		Title:    "Low Human-like Score",
		Description: fmt.Sprintf("Human-like rating of %.1f/10 indicates responses feel robotic. "+
			"Agent not sounding natural enough in conversations.", *agg.HumanlikeMean),
		MetricValue: fmt.Sprintf("%.1f/10", *agg.HumanlikeMean),
		Threshold:   fmt.Sprintf("%.0f/10", humanlikeThresholdMedium),
		RecommendedFix: "Improve conversational tone in system prompt. Add natural fillers, vary sentence " +
			"structure, and use more context-aware emotional responses. Review conversation " +
			"examples to identify patterns that sound unnatural.",
	}
}

func checkOutcome(agg Aggregate) *Issue {
	if agg.OutcomeMean == nil || *agg.OutcomeMean >= outcomeThresholdMedium {
		return nil
	}
	return &Issue{
		Severity: SeverityMedium,
		Title:    "Low Outcome Orientation Score",
		Description: fmt.Sprintf("Outcome score of %.1f/10 suggests agent not effectively "+
			"achieving conversation goals (payment commitments, issue resolution).", *agg.OutcomeMean),
		MetricValue: fmt.Sprintf("%.1f/10", *agg.OutcomeMean),
		Threshold:   fmt.Sprintf("%.0f/10", outcomeThresholdMedium),
		RecommendedFix: "Strengthen goal-oriented conversation strategies. Review negotiation tactics " +
			"and escalation paths. Ensure agent maintains focus on desired outcomes " +
			"throughout conversation.",
	}
}
