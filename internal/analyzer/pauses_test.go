package analyzer

import (
	"math"
	"testing"
)

func TestSegmentGapPauses(t *testing.T) {
	t.Parallel()

	normal := SensitivityNormal.Thresholds()

	t.Run("qualifying gap between segments", func(t *testing.T) {
		t.Parallel()
		segments := []Segment{
			{Start: 0, End: 2, Duration: 2},
			{Start: 6.5, End: 8, Duration: 1.5},
		}
		got := segmentGapPauses(segments, normal)
		if len(got) != 1 {
			t.Fatalf("got %d pauses, want 1", len(got))
		}
		p := got[0]
		if p.Start != 2 || p.End != 6.5 {
			t.Errorf("pause interval [%v, %v], want [2, 6.5]", p.Start, p.End)
		}
		if math.Abs(p.Duration-4.5) > 1e-9 {
			t.Errorf("duration = %v, want 4.5", p.Duration)
		}
		if p.Duration != p.End-p.Start {
			t.Errorf("duration %v != end-start %v", p.Duration, p.End-p.Start)
		}
		if p.Duration < normal.MinPause {
			t.Errorf("duration %v below minimum %v", p.Duration, normal.MinPause)
		}
	})

	t.Run("gap below minimum is ignored", func(t *testing.T) {
		t.Parallel()
		segments := []Segment{
			{Start: 0, End: 2, Duration: 2},
			{Start: 5, End: 6, Duration: 1},
		}
		if got := segmentGapPauses(segments, normal); len(got) != 0 {
			t.Fatalf("got %d pauses, want 0 for a 3s gap under normal sensitivity", len(got))
		}
	})

	t.Run("severity grading", func(t *testing.T) {
		t.Parallel()
		cases := []struct {
			gap      float64
			wantType PauseType
			wantSev  Severity
		}{
			{4.5, PauseShort, SeverityLow},
			{6.0, PauseMedium, SeverityMedium},
			{8.0, PauseLong, SeverityHigh},
		}
		for _, tc := range cases {
			segments := []Segment{
				{Start: 0, End: 2, Duration: 2},
				{Start: 2 + tc.gap, End: 4 + tc.gap, Duration: 2},
			}
			got := segmentGapPauses(segments, normal)
			if len(got) != 1 {
				t.Fatalf("gap %v: got %d pauses, want 1", tc.gap, len(got))
			}
			if got[0].Type != tc.wantType || got[0].Severity != tc.wantSev {
				t.Errorf("gap %v: got %s/%s, want %s/%s",
					tc.gap, got[0].Type, got[0].Severity, tc.wantType, tc.wantSev)
			}
		}
	})

	t.Run("high sensitivity flags shorter gaps", func(t *testing.T) {
		t.Parallel()
		segments := []Segment{
			{Start: 0, End: 2, Duration: 2},
			{Start: 5.5, End: 7, Duration: 1.5},
		}
		// 3.5s gap: below the normal minimum, above high's medium threshold.
		if got := segmentGapPauses(segments, SensitivityNormal.Thresholds()); len(got) != 0 {
			t.Fatalf("normal sensitivity flagged a 3.5s gap: %+v", got)
		}
		got := segmentGapPauses(segments, SensitivityHigh.Thresholds())
		if len(got) != 1 {
			t.Fatalf("got %d pauses, want 1 at high sensitivity", len(got))
		}
		if got[0].Type != PauseMedium || got[0].Severity != SeverityMedium {
			t.Errorf("got %s/%s, want medium_pause/medium", got[0].Type, got[0].Severity)
		}
	})
}

func TestTranscriptPauses(t *testing.T) {
	t.Parallel()

	t.Run("user to agent gap is an agent delay", func(t *testing.T) {
		t.Parallel()
		timeline := []Turn{
			{Role: RoleUser, Content: "hello", Start: 0, End: 1, Duration: 1},
			{Role: RoleAgent, Content: "hi there", Start: 6, End: 8, Duration: 2},
		}
		got := transcriptPauses(timeline, 4.0)
		if len(got) != 1 {
			t.Fatalf("got %d pauses, want 1", len(got))
		}
		if got[0].Type != PauseAgentDelay {
			t.Errorf("type = %s, want agent_delay", got[0].Type)
		}
		if got[0].Context == nil || got[0].Context.PreviousContent != "hello" {
			t.Errorf("context = %+v, want previous content recorded", got[0].Context)
		}
	})

	t.Run("agent to user gap is a conversation pause", func(t *testing.T) {
		t.Parallel()
		timeline := []Turn{
			{Role: RoleAgent, Content: "anything else?", Start: 0, End: 1, Duration: 1},
			{Role: RoleUser, Content: "yes", Start: 7, End: 8, Duration: 1},
		}
		got := transcriptPauses(timeline, 4.0)
		if len(got) != 1 {
			t.Fatalf("got %d pauses, want 1", len(got))
		}
		if got[0].Type != PauseConversation {
			t.Errorf("type = %s, want conversation_pause", got[0].Type)
		}
		if got[0].Severity != SeverityHigh {
			t.Errorf("severity = %s, want high for a 6s gap", got[0].Severity)
		}
	})

	t.Run("session markers are skipped", func(t *testing.T) {
		t.Parallel()
		timeline := []Turn{
			{Role: RoleUnknown, Content: "Session started", Start: 0, End: 0.1},
			{Role: RoleUser, Content: "hello", Start: 10, End: 11, Duration: 1},
		}
		if got := transcriptPauses(timeline, 4.0); len(got) != 0 {
			t.Fatalf("got %d pauses, want 0 (marker gap must not count)", len(got))
		}
	})
}

func TestDedupPauses(t *testing.T) {
	t.Parallel()

	pauses := []Pause{
		{Start: 2.0, Duration: 4.5, Type: PauseShort},
		{Start: 2.3, Duration: 4.4, Type: PauseEnhancedGap}, // duplicate of the first
		{Start: 9.0, Duration: 5.0, Type: PauseMedium},
	}

	once := dedupPauses(pauses, 0.5)
	if len(once) != 2 {
		t.Fatalf("got %d pauses after dedup, want 2", len(once))
	}
	if once[0].Type != PauseShort {
		t.Errorf("first detection should win, got %s", once[0].Type)
	}

	twice := dedupPauses(once, 0.5)
	if len(twice) != len(once) {
		t.Fatalf("dedup not idempotent: %d then %d", len(once), len(twice))
	}
}
