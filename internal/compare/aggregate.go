package compare

import (
	"github.com/sonavox/callaudit/internal/stats"
)

// Composite score weights. Hangup success carries less weight than the
// judge's three quality dimensions.
const (
	weightAccuracy  = 0.3
	weightHumanlike = 0.3
	weightOutcome   = 0.3
	weightHangup    = 0.1
)

// compositeScore blends a run's quality metrics into a single 0 to 10
// figure. Accuracy arrives on a 0 to 1 scale and is rescaled; humanlike and
// outcome are already 0 to 10. The hangup bonus is 10 when the conversation
// ended before the turn limit, 0 otherwise. Missing metrics drop out and
// the remaining weights are renormalized so a lone judge failure never
// deflates the score.
func compositeScore(accuracy, humanlike, outcome *float64, totalTurns, maxTurns int) float64 {
	var weightedSum, totalWeight float64

	if accuracy != nil {
		weightedSum += (*accuracy * 10) * weightAccuracy
		totalWeight += weightAccuracy
	}
	if humanlike != nil {
		weightedSum += *humanlike * weightHumanlike
		totalWeight += weightHumanlike
	}
	if outcome != nil {
		weightedSum += *outcome * weightOutcome
		totalWeight += weightOutcome
	}

	hangupScore := 0.0
	if totalTurns < maxTurns {
		hangupScore = 10.0
	}
	weightedSum += hangupScore * weightHangup
	totalWeight += weightHangup

	if totalWeight == 0 {
		return 0.0
	}
	return stats.Round2(weightedSum / totalWeight)
}

// aggregateRuns rolls up successful runs into per-agent statistics. Failed
// runs contribute only to the failure count. An agent with zero successful
// runs yields an Aggregate with nil stats and an explicit error marker so
// the comparison still accounts for it.
func aggregateRuns(agentID, agentName string, runs []Run, maxTurns int) Aggregate {
	agg := Aggregate{
		AgentID:          agentID,
		AgentName:        agentName,
		TotalSimulations: len(runs),
	}

	var successful []Run
	for _, r := range runs {
		if r.Status == StatusCompleted {
			successful = append(successful, r)
		}
	}
	agg.SuccessfulSimulations = len(successful)
	agg.FailedSimulations = len(runs) - len(successful)

	if len(successful) == 0 {
		agg.Error = "All simulations failed"
		return agg
	}

	var (
		medians, p75s, p99s  []float64
		accuracies           []float64
		humanlikes, outcomes []float64
		turns, composites    []float64
		hangups              int
	)
	for _, r := range successful {
		medians = append(medians, r.Latency.Median)
		p75s = append(p75s, r.Latency.P75)
		p99s = append(p99s, r.Latency.P99)
		if r.OverallAccuracy != nil {
			accuracies = append(accuracies, *r.OverallAccuracy)
		}
		if r.HumanlikeRating != nil {
			humanlikes = append(humanlikes, *r.HumanlikeRating)
		}
		if r.OutcomeOrientation != nil {
			outcomes = append(outcomes, *r.OutcomeOrientation)
		}
		if r.CompositeScore != nil {
			composites = append(composites, *r.CompositeScore)
		}
		turns = append(turns, float64(r.TotalTurns))
		if r.TotalTurns < maxTurns {
			hangups++
		}
	}

	agg.LatencyMedianMean, agg.LatencyMedianStd = meanStd(medians)
	agg.LatencyP75Mean, agg.LatencyP75Std = meanStd(p75s)
	agg.LatencyP99Mean, agg.LatencyP99Std = meanStd(p99s)

	agg.AccuracyMean, agg.AccuracyStd = meanStd(accuracies)
	agg.AccuracyMin, agg.AccuracyMax = minMax(accuracies)
	agg.HumanlikeMean, agg.HumanlikeStd = meanStd(humanlikes)
	agg.HumanlikeMin, agg.HumanlikeMax = minMax(humanlikes)
	agg.OutcomeMean, agg.OutcomeStd = meanStd(outcomes)
	agg.OutcomeMin, agg.OutcomeMax = minMax(outcomes)

	agg.CompositeScoreMean, agg.CompositeScoreStd = meanStd(composites)
	agg.AvgTurnsMean, agg.AvgTurnsStd = meanStd(turns)

	agg.HangupSuccessRate = stats.Round3(float64(hangups) / float64(len(successful)))

	return agg
}

// meanStd returns the mean and population standard deviation of values, or
// nils when values is empty.
func meanStd(values []float64) (*float64, *float64) {
	if len(values) == 0 {
		return nil, nil
	}
	return ptr(stats.Mean(values)), ptr(stats.PopStdDev(values))
}

// minMax returns the extremes of values, or nils when values is empty.
func minMax(values []float64) (*float64, *float64) {
	if len(values) == 0 {
		return nil, nil
	}
	return ptr(stats.Min(values)), ptr(stats.Max(values))
}
