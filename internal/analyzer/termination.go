package analyzer

import (
	"fmt"
	"strings"
)

// analyzeTermination inspects the tail of the waveform, and the transcript
// when present, for abrupt-cutoff and duplicate-ending anomalies.
func analyzeTermination(segments []Segment, duration float64, timeline []Turn) Termination {
	term := Termination{Issues: []string{}}

	if len(segments) > 0 {
		last := segments[len(segments)-1]
		endSilence := duration - last.End

		switch {
		case endSilence > 10.0:
			term.Issues = append(term.Issues, fmt.Sprintf("very long silence at end (%.1fs)", endSilence))
		case endSilence > 5.0:
			term.Issues = append(term.Issues, fmt.Sprintf("long silence at end (%.1fs)", endSilence))
		case endSilence < 0.2:
			term.AbruptEnding = true
			term.Issues = append(term.Issues, "very abrupt audio ending (possible cutoff)")
		}

		// A natural close fades out; a very short final utterance right at
		// the clip end usually means the recording was cut.
		if endSilence < 1.0 && last.Duration < 0.5 {
			term.AbruptEnding = true
			term.Issues = append(term.Issues, "last speech segment very short (possible cutoff)")
		}
	}

	if len(timeline) > 0 {
		applyTranscriptTermination(&term, timeline)
	}
	return term
}

// applyTranscriptTermination fills the transcript-derived termination flags:
// explicit session markers, duplicate end markers and whether the final
// conversational turn came from the user.
func applyTranscriptTermination(term *Termination, timeline []Turn) {
	if containsLower(timeline[0].Content, "session started") {
		term.SessionStartedProperly = true
	}

	endCount := 0
	for _, turn := range timeline {
		if containsLower(turn.Content, "session ended") {
			endCount++
		}
	}
	term.SessionEndedProperly = endCount > 0
	term.DuplicateEndings = endCount > 1

	turns := conversationTurns(timeline)
	if len(turns) > 0 && turns[len(turns)-1].Role == RoleUser {
		term.LastSpeakerWasUser = true
	}
}

func containsLower(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
