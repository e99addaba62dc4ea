package compare

import (
	"math"
	"testing"

	"github.com/sonavox/callaudit/internal/analyzer"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalculatePercentiles(t *testing.T) {
	t.Parallel()

	latencies := []TurnLatency{
		{Turn: 1, Latency: 1.0},
		{Turn: 2, Latency: 1.2},
		{Turn: 3, Latency: 5.0},
	}
	got := CalculatePercentiles(latencies)

	want := LatencyStats{
		Median: 1.2,
		P75:    3.1,
		P99:    4.924,
		Min:    1.0,
		Max:    5.0,
		Avg:    2.4,
	}
	if !almostEqual(got.Median, want.Median) || !almostEqual(got.P75, want.P75) ||
		!almostEqual(got.P99, want.P99) || !almostEqual(got.Min, want.Min) ||
		!almostEqual(got.Max, want.Max) || !almostEqual(got.Avg, want.Avg) {
		t.Errorf("want %+v, got %+v", want, got)
	}
}

func TestCalculatePercentilesEmpty(t *testing.T) {
	t.Parallel()

	got := CalculatePercentiles(nil)
	if got != (LatencyStats{}) {
		t.Errorf("empty input must yield zero stats, got %+v", got)
	}
}

func TestExtractTurnLatencies(t *testing.T) {
	t.Parallel()

	turns := []analyzer.Turn{
		{Role: analyzer.RoleAgent, Start: 0, End: 2},
		{Role: analyzer.RoleUser, Start: 2.5, End: 4},
		{Role: analyzer.RoleAgent, Start: 5.2, End: 7},
		{Role: analyzer.RoleUser, Start: 7.5, End: 9},
		// Agent starts before the user finished: no measurable latency.
		{Role: analyzer.RoleAgent, Start: 8.9, End: 11},
		{Role: analyzer.RoleUser, Start: 11.5, End: 12},
	}

	got := ExtractTurnLatencies(turns)
	if len(got) != 1 {
		t.Fatalf("want 1 latency, got %d: %+v", len(got), got)
	}
	if got[0].Turn != 1 || !almostEqual(got[0].Latency, 1.2) {
		t.Errorf("want turn 1 latency 1.2, got %+v", got[0])
	}
}

func TestExtractTurnLatenciesSkipsEstimatedTiming(t *testing.T) {
	t.Parallel()

	turns := []analyzer.Turn{
		{Role: analyzer.RoleUser, Start: 0, End: 2, TimingMethod: analyzer.TimingAudioAligned},
		{Role: analyzer.RoleAgent, Start: 3, End: 5, TimingMethod: analyzer.TimingAudioAligned},
		// Positional guesses must not turn into latency samples.
		{Role: analyzer.RoleUser, Start: 6, End: 7, TimingMethod: analyzer.TimingEstimated},
		{Role: analyzer.RoleAgent, Start: 9, End: 10, TimingMethod: analyzer.TimingEstimated},
	}

	got := ExtractTurnLatencies(turns)
	if len(got) != 1 {
		t.Fatalf("want 1 latency, got %d: %+v", len(got), got)
	}
	if !almostEqual(got[0].Latency, 1.0) {
		t.Errorf("want latency 1.0, got %+v", got[0])
	}
}

func TestExtractTurnLatenciesEmpty(t *testing.T) {
	t.Parallel()

	if got := ExtractTurnLatencies(nil); len(got) != 0 {
		t.Errorf("want no latencies, got %+v", got)
	}
}

func TestLatenciesFromMillis(t *testing.T) {
	t.Parallel()

	got := latenciesFromMillis([]float64{1000, 1200, 5000})
	if len(got) != 3 {
		t.Fatalf("want 3 entries, got %d", len(got))
	}
	if got[0].Turn != 1 || !almostEqual(got[0].Latency, 1.0) {
		t.Errorf("unexpected first entry %+v", got[0])
	}
	if got[2].Turn != 3 || !almostEqual(got[2].Latency, 5.0) {
		t.Errorf("unexpected last entry %+v", got[2])
	}
}
