package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role identifies the speaker of a transcript turn.
type Role string

const (
	RoleUser    Role = "USER"
	RoleAgent   Role = "AGENT"
	RoleUnknown Role = "UNKNOWN"
)

// TimingMethod records how a turn's start/end times were derived.
type TimingMethod string

const (
	// TimingAudioAligned means the turn was matched to a detected speech
	// segment and carries audio-derived timing.
	TimingAudioAligned TimingMethod = "audio_aligned"
	// TimingEstimated means no segment matched and the timing is a
	// positional guess. Consumers should treat it as low confidence.
	TimingEstimated TimingMethod = "estimated"
)

// Turn is one transcript entry placed on the call timeline.
type Turn struct {
	Role         Role         `json:"role"`
	Content      string       `json:"content"`
	Start        float64      `json:"start_time"`
	End          float64      `json:"end_time"`
	Duration     float64      `json:"duration"`
	TimingMethod TimingMethod `json:"timing_method,omitempty"`
}

// IsMarker reports whether the turn is a session bookkeeping marker
// ("session started" / "session ended") rather than conversation content.
func (t Turn) IsMarker() bool {
	return strings.Contains(strings.ToLower(t.Content), "session")
}

// transcriptFile is the on-disk transcript shape: absolute timestamps per
// turn, no durations.
type transcriptFile struct {
	Turns []struct {
		Role      string `json:"role"`
		Content   string `json:"content"`
		Timestamp string `json:"timestamp"`
	} `json:"turns"`
}

// ParseTranscript decodes a JSON transcript into a relative timeline. Turn
// start times are measured from the first turn; each turn's duration runs to
// the next turn's timestamp, with a 1s default for the last turn.
func ParseTranscript(data []byte) ([]Turn, error) {
	var file transcriptFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("analyzer: parse transcript: %w", err)
	}
	if len(file.Turns) == 0 {
		return nil, nil
	}

	stamps := make([]time.Time, len(file.Turns))
	for i, turn := range file.Turns {
		ts, err := time.Parse(time.RFC3339, turn.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("analyzer: parse transcript: turn %d timestamp: %w", i, err)
		}
		stamps[i] = ts
	}

	start := stamps[0]
	timeline := make([]Turn, len(file.Turns))
	for i, turn := range file.Turns {
		rel := stamps[i].Sub(start).Seconds()
		duration := 1.0
		if i < len(file.Turns)-1 {
			duration = stamps[i+1].Sub(stamps[i]).Seconds()
		}
		timeline[i] = Turn{
			Role:     ParseRole(turn.Role),
			Content:  turn.Content,
			Start:    rel,
			End:      rel + duration,
			Duration: duration,
		}
	}
	return timeline, nil
}

// ParseRole normalises the speaker labels found in upstream transcripts.
func ParseRole(raw string) Role {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "USER":
		return RoleUser
	case "AGENT", "AGENT_SPEECH", "ASSISTANT":
		return RoleAgent
	default:
		return RoleUnknown
	}
}

// conversationTurns filters out session markers, leaving only real
// conversation content.
func conversationTurns(timeline []Turn) []Turn {
	var out []Turn
	for _, t := range timeline {
		if !t.IsMarker() {
			out = append(out, t)
		}
	}
	return out
}

// EnhanceTimeline realigns transcript turns with detected speech segments.
// Turns are matched to segments by position; matched turns take the
// segment's audio-derived timing, surplus turns get estimated timing after
// the last segment. With no segments at all, every turn is estimated on a
// fixed grid. The timing method is tagged on every turn so consumers can
// filter on confidence.
func EnhanceTimeline(timeline []Turn, segments []Segment) []Turn {
	if len(timeline) == 0 {
		return nil
	}

	enhanced := make([]Turn, 0, max(len(timeline), len(segments)))

	if len(segments) == 0 {
		for i, turn := range timeline {
			start := float64(i) * 2.0
			enhanced = append(enhanced, Turn{
				Role:         turn.Role,
				Content:      turn.Content,
				Start:        start,
				End:          start + 1.0,
				Duration:     1.0,
				TimingMethod: TimingEstimated,
			})
		}
		return enhanced
	}

	for i, seg := range segments {
		turn := Turn{
			Role:         RoleUnknown,
			Content:      fmt.Sprintf("speech segment %d (no transcript content)", i+1),
			Start:        seg.Start,
			End:          seg.End,
			Duration:     seg.Duration,
			TimingMethod: TimingAudioAligned,
		}
		if i < len(timeline) {
			turn.Role = timeline[i].Role
			turn.Content = timeline[i].Content
		}
		enhanced = append(enhanced, turn)
	}

	last := segments[len(segments)-1]
	for i := len(segments); i < len(timeline); i++ {
		start := last.End + float64(i-len(segments)+1)*0.5
		enhanced = append(enhanced, Turn{
			Role:         timeline[i].Role,
			Content:      timeline[i].Content,
			Start:        start,
			End:          start + 0.5,
			Duration:     0.5,
			TimingMethod: TimingEstimated,
		})
	}
	return enhanced
}
