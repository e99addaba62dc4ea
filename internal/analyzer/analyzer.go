// Package analyzer infers conversation-flow structure directly from a call
// recording: speech segments, pauses, interruptions, termination anomalies
// and a single bounded health score. No transcription is involved; the
// analyzer works on the waveform alone, with optional refinement from a
// turn-annotated transcript.
package analyzer

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sonavox/callaudit/pkg/audio"
)

// ErrEmptyWaveform is returned when there is no audio to analyze.
var ErrEmptyWaveform = errors.New("analyzer: empty waveform")

// Analyzer runs conversation-flow analysis over decoded waveforms. It is
// stateless between calls and safe for concurrent use.
type Analyzer struct {
	cfg Config
	log *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger used for analysis progress and anomalies.
func WithLogger(log *slog.Logger) Option {
	return func(a *Analyzer) {
		a.log = log
	}
}

// New creates an Analyzer. Zero-valued config fields take the production
// defaults.
func New(cfg Config, opts ...Option) *Analyzer {
	a := &Analyzer{
		cfg: cfg.normalized(),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns the analyzer's effective configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// Analyze runs the full conversation-flow analysis on one waveform. timeline
// is the optional parsed transcript; pass nil for audio-only analysis.
//
// Unusual input never fails the analysis: a silence-only file produces empty
// event lists and a health score of 100.
func (a *Analyzer) Analyze(w *audio.Waveform, timeline []Turn) (*Result, error) {
	if w == nil || len(w.Samples) == 0 || w.SampleRate <= 0 {
		return nil, ErrEmptyWaveform
	}

	started := time.Now()

	// Features follow the waveform's actual rate in case the decoder kept a
	// native rate different from the configured one.
	cfg := a.cfg
	cfg.SampleRate = w.SampleRate

	f := computeFeatures(w.Samples, cfg)
	segments := detectSegments(f, cfg)

	duration := w.Duration()
	var speechTime float64
	for _, seg := range segments {
		speechTime += seg.Duration
	}
	speechPct := 0.0
	if duration > 0 {
		speechPct = speechTime / duration * 100
	}

	pauses := detectPauses(segments, f, timeline, cfg)
	interruptions := detectInterruptions(segments, f, timeline, cfg)
	termination := analyzeTermination(segments, duration, timeline)

	agentDelays := 0
	for _, p := range pauses {
		if p.Type == PauseAgentDelay {
			agentDelays++
		}
	}

	result := &Result{
		AudioInfo: AudioInfo{
			Duration:         duration,
			SpeechTime:       speechTime,
			SpeechPercentage: speechPct,
		},
		SpeechSegments: segments,
		Timeline:       EnhanceTimeline(conversationTurns(timeline), segments),
		Pauses:         pauses,
		Interruptions:  interruptions,
		Termination:    termination,
		Summary: Summary{
			PauseCount:              len(pauses),
			AgentDelayCount:         agentDelays,
			InterruptionCount:       len(interruptions),
			TerminationIssues:       len(termination.Issues),
			ConversationHealthScore: healthScore(pauses, interruptions, termination),
		},
	}

	a.log.Debug("analysis complete",
		"duration", duration,
		"segments", len(segments),
		"pauses", len(pauses),
		"interruptions", len(interruptions),
		"health", result.Summary.ConversationHealthScore,
		"took", time.Since(started),
	)
	return result, nil
}
