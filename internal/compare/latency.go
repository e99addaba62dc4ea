package compare

import (
	"github.com/sonavox/callaudit/internal/analyzer"
	"github.com/sonavox/callaudit/internal/stats"
)

// ExtractTurnLatencies pulls agent response latencies out of an analyzed
// conversation timeline. A latency is the gap between the end of a USER
// turn and the start of the AGENT turn that directly follows it; overlapping
// or touching turns contribute nothing. Turns with estimated timing are
// skipped, since positional guesses would fabricate latencies.
func ExtractTurnLatencies(turns []analyzer.Turn) []TurnLatency {
	var latencies []TurnLatency
	n := 1
	for i := 0; i+1 < len(turns); i++ {
		cur, next := turns[i], turns[i+1]
		if cur.Role != analyzer.RoleUser || next.Role != analyzer.RoleAgent {
			continue
		}
		if cur.TimingMethod == analyzer.TimingEstimated || next.TimingMethod == analyzer.TimingEstimated {
			continue
		}
		if next.Start > cur.End {
			latencies = append(latencies, TurnLatency{
				Turn:    n,
				Latency: stats.Round3(next.Start - cur.End),
			})
			n++
		}
	}
	return latencies
}

// CalculatePercentiles summarizes turn latencies. Empty input yields the
// zero LatencyStats rather than NaNs so the stats can be stored and ranked
// without null handling.
func CalculatePercentiles(latencies []TurnLatency) LatencyStats {
	if len(latencies) == 0 {
		return LatencyStats{}
	}

	values := make([]float64, len(latencies))
	for i, l := range latencies {
		values[i] = l.Latency
	}

	return LatencyStats{
		Median: stats.Round3(stats.Median(values)),
		P75:    stats.Round3(stats.Percentile(values, 75)),
		P99:    stats.Round3(stats.Percentile(values, 99)),
		Min:    stats.Round3(stats.Min(values)),
		Max:    stats.Round3(stats.Max(values)),
		Avg:    stats.Round3(stats.Mean(values)),
	}
}

// latenciesFromMillis converts raw per-turn latencies in milliseconds into
// second-based TurnLatency records numbered from 1.
func latenciesFromMillis(ms []float64) []TurnLatency {
	out := make([]TurnLatency, len(ms))
	for i, v := range ms {
		out[i] = TurnLatency{Turn: i + 1, Latency: v / 1000}
	}
	return out
}
