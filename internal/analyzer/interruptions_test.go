package analyzer

import (
	"math"
	"testing"
)

func TestTranscriptInterruptions(t *testing.T) {
	t.Parallel()

	t.Run("agent interrupts user on near-instant reply", func(t *testing.T) {
		t.Parallel()
		timeline := []Turn{
			{Role: RoleUser, Content: "wait, I", Start: 0, End: 1, Duration: 1},
			{Role: RoleAgent, Content: "sure!", Start: 1.05, End: 2, Duration: 0.95},
		}
		got := transcriptInterruptions(timeline)
		if len(got) != 1 {
			t.Fatalf("got %d interruptions, want 1", len(got))
		}
		in := got[0]
		if in.Type != InterruptionAgentInterruptsUser {
			t.Errorf("type = %s, want agent_interrupts_user", in.Type)
		}
		if in.Confidence != 0.8 {
			t.Errorf("confidence = %v, want 0.8", in.Confidence)
		}
		if in.Context == nil || in.Context.InterruptingRole != RoleAgent {
			t.Errorf("context = %+v, want interrupting role AGENT", in.Context)
		}
	})

	t.Run("fast agent reply above 100ms is normal", func(t *testing.T) {
		t.Parallel()
		timeline := []Turn{
			{Role: RoleUser, Content: "hello", Start: 0, End: 1, Duration: 1},
			{Role: RoleAgent, Content: "hi", Start: 1.3, End: 2, Duration: 0.7},
		}
		if got := transcriptInterruptions(timeline); len(got) != 0 {
			t.Fatalf("got %d interruptions, want 0", len(got))
		}
	})

	t.Run("user interrupts agent", func(t *testing.T) {
		t.Parallel()
		timeline := []Turn{
			{Role: RoleAgent, Content: "let me explain the", Start: 0, End: 2, Duration: 2},
			{Role: RoleUser, Content: "no thanks", Start: 2.4, End: 3, Duration: 0.6},
		}
		got := transcriptInterruptions(timeline)
		if len(got) != 1 {
			t.Fatalf("got %d interruptions, want 1", len(got))
		}
		if got[0].Type != InterruptionUserInterruptsAgent || got[0].Confidence != 0.7 {
			t.Errorf("got %s/%v, want user_interrupts_agent/0.7", got[0].Type, got[0].Confidence)
		}
	})

	t.Run("same-role overlap under 50ms is a system overlap", func(t *testing.T) {
		t.Parallel()
		timeline := []Turn{
			{Role: RoleAgent, Content: "one moment", Start: 0, End: 1, Duration: 1},
			{Role: RoleAgent, Content: "thank you for waiting", Start: 1.02, End: 2, Duration: 0.98},
		}
		got := transcriptInterruptions(timeline)
		if len(got) != 1 {
			t.Fatalf("got %d interruptions, want 1", len(got))
		}
		if got[0].Type != InterruptionSystemOverlap || got[0].Confidence != 0.9 {
			t.Errorf("got %s/%v, want system_overlap/0.9", got[0].Type, got[0].Confidence)
		}
	})

	t.Run("clean turn taking yields nothing", func(t *testing.T) {
		t.Parallel()
		timeline := []Turn{
			{Role: RoleUser, Content: "hello", Start: 0, End: 1, Duration: 1},
			{Role: RoleAgent, Content: "hi", Start: 2, End: 3, Duration: 1},
			{Role: RoleUser, Content: "bye", Start: 4, End: 5, Duration: 1},
		}
		if got := transcriptInterruptions(timeline); len(got) != 0 {
			t.Fatalf("got %d interruptions, want 0: %+v", len(got), got)
		}
	})
}

func TestDedupInterruptions(t *testing.T) {
	t.Parallel()

	interruptions := []Interruption{
		{Time: 1.00, Type: InterruptionAudioOverlap},
		{Time: 1.05, Type: InterruptionUserInterruptsAgent}, // duplicate of the first
		{Time: 2.00, Type: InterruptionSystemOverlap},
	}

	once := dedupInterruptions(interruptions, 0.1)
	if len(once) != 2 {
		t.Fatalf("got %d after dedup, want 2", len(once))
	}
	if once[0].Type != InterruptionAudioOverlap {
		t.Errorf("first detection should win, got %s", once[0].Type)
	}

	twice := dedupInterruptions(once, 0.1)
	if len(twice) != len(once) {
		t.Fatalf("dedup not idempotent: %d then %d", len(once), len(twice))
	}
}

func TestAudioInterruptions(t *testing.T) {
	t.Parallel()

	// A hard cut between two utterances with an energetic boundary: segment
	// gap of 60ms with high energy variance inside it.
	samples := tone(nil, 1)
	samples = silence(samples, 0.06)
	samples = tone(samples, 1)
	samples = silence(samples, 3)
	samples = tone(samples, 1)

	cfg := DefaultConfig()
	f := computeFeatures(samples, cfg)
	segments := []Segment{
		{Start: 0, End: 1, Duration: 1},
		{Start: 1.06, End: 2.06, Duration: 1},
		{Start: 5.06, End: 6.06, Duration: 1},
	}

	got := audioInterruptions(segments, f, cfg)
	for _, in := range got {
		if in.Confidence < 0 || in.Confidence > 1 {
			t.Errorf("confidence %v outside [0, 1]", in.Confidence)
		}
		if math.Abs(in.Time-1.06) > 0.2 {
			t.Errorf("interruption at %v, want near the 60ms gap at 1.06", in.Time)
		}
		if in.GapDuration >= cfg.InterruptionMaxGap {
			t.Errorf("gap %v should be below %v", in.GapDuration, cfg.InterruptionMaxGap)
		}
	}
	// The 3s gap must never be an interruption candidate.
	for _, in := range got {
		if in.Time > 4 {
			t.Fatalf("long pause misclassified as interruption: %+v", in)
		}
	}
}
