package analyzer

import (
	"math"
	"sort"

	"github.com/sonavox/callaudit/internal/stats"
)

// detectPauses runs all three pause detectors, de-duplicates their combined
// output and returns it time-sorted.
func detectPauses(segments []Segment, f *features, timeline []Turn, cfg Config) []Pause {
	thr := cfg.Sensitivity.Thresholds()

	pauses := segmentGapPauses(segments, thr)
	if len(segments) > 0 {
		pauses = append(pauses, enhancedGapPauses(segments, f, thr.MinPause, cfg.EnhancedEnergyPercentile)...)
	}
	if len(timeline) > 0 {
		pauses = append(pauses, transcriptPauses(timeline, thr.MinPause)...)
	}

	pauses = dedupPauses(pauses, cfg.PauseDedupWindow)
	sort.Slice(pauses, func(i, j int) bool { return pauses[i].Start < pauses[j].Start })
	return pauses
}

// segmentGapPauses is the primary detector: gaps between adjacent speech
// segments, graded by the sensitivity thresholds.
func segmentGapPauses(segments []Segment, thr PauseThresholds) []Pause {
	var pauses []Pause
	for i := 0; i+1 < len(segments); i++ {
		cur, next := segments[i], segments[i+1]
		gap := next.Start - cur.End
		if gap < thr.MinPause {
			continue
		}

		pauseType := PauseShort
		severity := SeverityLow
		switch {
		case gap > thr.LongPause:
			pauseType, severity = PauseLong, SeverityHigh
		case gap > thr.MediumPause:
			pauseType, severity = PauseMedium, SeverityMedium
		}

		pauses = append(pauses, Pause{
			Start:    cur.End,
			End:      next.Start,
			Duration: gap,
			Type:     pauseType,
			Severity: severity,
		})
	}
	return pauses
}

// enhancedGapPauses inspects the RMS energy inside qualifying gaps. A large
// energy spread inside a gap suggests the primary detector under-segmented,
// so the gap is reported with a confidence derived from the spread.
func enhancedGapPauses(segments []Segment, f *features, minPause, energyPercentile float64) []Pause {
	if len(segments) < 2 || len(f.rms) == 0 {
		return nil
	}

	energyThr := stats.Percentile(f.rms, energyPercentile)

	var pauses []Pause
	for i := 0; i+1 < len(segments); i++ {
		cur, next := segments[i], segments[i+1]
		gap := next.Start - cur.End
		if gap < minPause {
			continue
		}

		lo := f.nearestFrame(cur.End)
		hi := f.nearestFrame(next.Start)
		if lo >= hi || lo >= len(f.rms) {
			continue
		}
		gapEnergies := f.rms[lo:hi]

		drop := stats.Max(gapEnergies) - stats.Min(gapEnergies)
		if drop <= energyThr*0.5 {
			continue
		}

		severity := SeverityMedium
		if gap > 5.0 {
			severity = SeverityHigh
		}
		pauses = append(pauses, Pause{
			Start:      cur.End,
			End:        next.Start,
			Duration:   gap,
			Type:       PauseEnhancedGap,
			Severity:   severity,
			Confidence: math.Min(1.0, drop/energyThr),
		})
	}
	return pauses
}

// transcriptPauses derives pauses from transcript turn boundaries. A gap
// following a user turn and preceding the agent's reply is an agent delay,
// the heaviest signal in health scoring.
func transcriptPauses(timeline []Turn, minPause float64) []Pause {
	turns := conversationTurns(timeline)

	var pauses []Pause
	for i := 0; i+1 < len(turns); i++ {
		cur, next := turns[i], turns[i+1]
		gap := next.Start - cur.End
		if gap < minPause {
			continue
		}

		pauseType := PauseConversation
		if cur.Role == RoleUser && next.Role == RoleAgent {
			pauseType = PauseAgentDelay
		}
		severity := SeverityMedium
		if gap > 5.0 {
			severity = SeverityHigh
		}

		pauses = append(pauses, Pause{
			Start:    cur.End,
			End:      next.Start,
			Duration: gap,
			Type:     pauseType,
			Severity: severity,
			Context: &PauseContext{
				AfterRole:       cur.Role,
				BeforeRole:      next.Role,
				PreviousContent: cur.Content,
				NextContent:     next.Content,
			},
		})
	}
	return pauses
}

// dedupPauses collapses pauses whose start time and duration both fall
// within the window of an already kept pause. The window is empirical; see
// Config.PauseDedupWindow. The pass is idempotent.
func dedupPauses(pauses []Pause, window float64) []Pause {
	var unique []Pause
	for _, p := range pauses {
		duplicate := false
		for _, kept := range unique {
			if math.Abs(p.Start-kept.Start) < window && math.Abs(p.Duration-kept.Duration) < window {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, p)
		}
	}
	return unique
}
