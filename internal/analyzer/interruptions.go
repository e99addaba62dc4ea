package analyzer

import (
	"math"
	"sort"

	"github.com/sonavox/callaudit/internal/stats"
)

// detectInterruptions combines the audio-only and transcript-timing
// detectors, de-duplicates and returns the result time-sorted.
func detectInterruptions(segments []Segment, f *features, timeline []Turn, cfg Config) []Interruption {
	interruptions := audioInterruptions(segments, f, cfg)
	if len(timeline) > 0 {
		interruptions = append(interruptions, transcriptInterruptions(timeline)...)
	}

	interruptions = dedupInterruptions(interruptions, cfg.InterruptionDedupWindow)
	sort.Slice(interruptions, func(i, j int) bool { return interruptions[i].Time < interruptions[j].Time })
	return interruptions
}

// audioInterruptions flags very short segment gaps whose internal energy
// variance suggests overlapping speech rather than clean turn-taking.
func audioInterruptions(segments []Segment, f *features, cfg Config) []Interruption {
	if len(segments) < 2 || len(f.rms) == 0 {
		return nil
	}

	energyThr := stats.Percentile(f.rms, cfg.InterruptionEnergyPercentile)

	var interruptions []Interruption
	for i := 0; i+1 < len(segments); i++ {
		cur, next := segments[i], segments[i+1]
		gap := next.Start - cur.End
		if gap >= cfg.InterruptionMaxGap {
			continue
		}

		lo := f.nearestFrame(cur.End)
		hi := f.nearestFrame(next.Start)
		if lo >= hi || lo >= len(f.rms) {
			continue
		}
		variance := stats.PopVariance(f.rms[lo:hi])
		if variance <= energyThr*0.3 {
			continue
		}

		severity := SeverityMedium
		if gap < 0.1 {
			severity = SeverityHigh
		}
		interruptions = append(interruptions, Interruption{
			Time:        next.Start,
			GapDuration: gap,
			Type:        InterruptionAudioOverlap,
			Confidence:  math.Min(1.0, variance/energyThr),
			Severity:    severity,
		})
	}
	return interruptions
}

// transcriptInterruptions classifies sub-500ms gaps between opposite-role
// turns by role pattern and gap size, each with a fixed confidence constant.
func transcriptInterruptions(timeline []Turn) []Interruption {
	turns := conversationTurns(timeline)

	var interruptions []Interruption
	for i := 0; i+1 < len(turns); i++ {
		cur, next := turns[i], turns[i+1]
		gap := next.Start - cur.End
		if gap >= 0.5 {
			continue
		}

		var kind InterruptionType
		var confidence float64
		switch {
		case cur.Role == RoleUser && next.Role == RoleAgent:
			// Agents respond fast by design; only a near-instant reply
			// indicates the agent talked over the user.
			if gap >= 0.1 {
				continue
			}
			kind, confidence = InterruptionAgentInterruptsUser, 0.8
		case cur.Role == RoleAgent && next.Role == RoleUser:
			kind, confidence = InterruptionUserInterruptsAgent, 0.7
		case gap < 0.05:
			kind, confidence = InterruptionSystemOverlap, 0.9
		default:
			continue
		}

		interruptions = append(interruptions, Interruption{
			Time:        next.Start,
			GapDuration: gap,
			Type:        kind,
			Confidence:  confidence,
			Context: &InterruptionContext{
				InterruptedRole:  cur.Role,
				InterruptingRole: next.Role,
			},
		})
	}
	return interruptions
}

// dedupInterruptions collapses detections within the window of an already
// kept one. The pass is idempotent.
func dedupInterruptions(interruptions []Interruption, window float64) []Interruption {
	var unique []Interruption
	for _, in := range interruptions {
		duplicate := false
		for _, kept := range unique {
			if math.Abs(in.Time-kept.Time) < window {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, in)
		}
	}
	return unique
}
