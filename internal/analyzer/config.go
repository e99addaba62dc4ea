package analyzer

// Sensitivity selects how aggressively pauses are flagged.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityNormal Sensitivity = "normal"
	SensitivityHigh   Sensitivity = "high"
)

// IsValid reports whether s is a known sensitivity level.
func (s Sensitivity) IsValid() bool {
	switch s {
	case SensitivityLow, SensitivityNormal, SensitivityHigh:
		return true
	}
	return false
}

// PauseThresholds holds the sensitivity-dependent pause boundaries, all in
// seconds.
type PauseThresholds struct {
	// MinPause is the smallest gap reported as a pause at all.
	MinPause float64
	// LongPause is the boundary above which a pause is long/high severity.
	LongPause float64
	// MediumPause is the boundary above which a pause is medium severity.
	MediumPause float64
}

// Thresholds returns the empirically tuned pause boundaries for s. Unknown
// values fall back to normal.
func (s Sensitivity) Thresholds() PauseThresholds {
	switch s {
	case SensitivityLow:
		return PauseThresholds{MinPause: 6.0, LongPause: 10.0, MediumPause: 7.0}
	case SensitivityHigh:
		return PauseThresholds{MinPause: 2.0, LongPause: 5.0, MediumPause: 3.0}
	default:
		return PauseThresholds{MinPause: 4.0, LongPause: 7.0, MediumPause: 5.0}
	}
}

// Config holds every tunable of the analyzer. The percentile and dedup
// constants are empirical; they are exposed here rather than hardwired so
// deployments can adjust them per recording environment.
type Config struct {
	// SampleRate is the analysis rate in Hz the waveform must be decoded at.
	SampleRate int

	// HopLength is the framewise feature hop size in samples.
	HopLength int

	// FrameLength is the feature window size in samples.
	FrameLength int

	// RolloffPercentile, EnergyPercentile and ZCRPercentile set the
	// per-feature speech/silence boundary as a percentile of the whole clip.
	RolloffPercentile float64
	EnergyPercentile  float64
	ZCRPercentile     float64

	// RolloffPoint is the spectral-rolloff cumulative-energy fraction.
	RolloffPoint float64

	// MinSegmentDuration drops speech runs shorter than this, in seconds.
	MinSegmentDuration float64

	// MergeGapThreshold merges adjacent segments whose gap is below this, in
	// seconds. Larger gaps are genuine pauses and must be preserved.
	MergeGapThreshold float64

	// Sensitivity selects the pause threshold table.
	Sensitivity Sensitivity

	// EnhancedEnergyPercentile feeds the enhanced speech-gap detector.
	EnhancedEnergyPercentile float64

	// InterruptionMaxGap is the largest segment gap considered an
	// interruption candidate, in seconds.
	InterruptionMaxGap float64

	// InterruptionEnergyPercentile feeds the audio interruption detector.
	InterruptionEnergyPercentile float64

	// PauseDedupWindow collapses pauses whose starts and durations both lie
	// within this many seconds of an already kept pause.
	PauseDedupWindow float64

	// InterruptionDedupWindow collapses interruptions within this many
	// seconds of an already kept one.
	InterruptionDedupWindow float64
}

// DefaultConfig returns the tuned production defaults.
func DefaultConfig() Config {
	return Config{
		SampleRate:                   16000,
		HopLength:                    512,
		FrameLength:                  2048,
		RolloffPercentile:            25,
		EnergyPercentile:             30,
		ZCRPercentile:                35,
		RolloffPoint:                 0.85,
		MinSegmentDuration:           0.2,
		MergeGapThreshold:            0.2,
		Sensitivity:                  SensitivityNormal,
		EnhancedEnergyPercentile:     70,
		InterruptionMaxGap:           0.3,
		InterruptionEnergyPercentile: 80,
		PauseDedupWindow:             0.5,
		InterruptionDedupWindow:      0.1,
	}
}

// normalized returns c with zero values replaced by defaults.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.SampleRate <= 0 {
		c.SampleRate = def.SampleRate
	}
	if c.HopLength <= 0 {
		c.HopLength = def.HopLength
	}
	if c.FrameLength <= 0 {
		c.FrameLength = def.FrameLength
	}
	if c.RolloffPercentile <= 0 {
		c.RolloffPercentile = def.RolloffPercentile
	}
	if c.EnergyPercentile <= 0 {
		c.EnergyPercentile = def.EnergyPercentile
	}
	if c.ZCRPercentile <= 0 {
		c.ZCRPercentile = def.ZCRPercentile
	}
	if c.RolloffPoint <= 0 {
		c.RolloffPoint = def.RolloffPoint
	}
	if c.MinSegmentDuration <= 0 {
		c.MinSegmentDuration = def.MinSegmentDuration
	}
	if c.MergeGapThreshold <= 0 {
		c.MergeGapThreshold = def.MergeGapThreshold
	}
	if !c.Sensitivity.IsValid() {
		c.Sensitivity = def.Sensitivity
	}
	if c.EnhancedEnergyPercentile <= 0 {
		c.EnhancedEnergyPercentile = def.EnhancedEnergyPercentile
	}
	if c.InterruptionMaxGap <= 0 {
		c.InterruptionMaxGap = def.InterruptionMaxGap
	}
	if c.InterruptionEnergyPercentile <= 0 {
		c.InterruptionEnergyPercentile = def.InterruptionEnergyPercentile
	}
	if c.PauseDedupWindow <= 0 {
		c.PauseDedupWindow = def.PauseDedupWindow
	}
	if c.InterruptionDedupWindow <= 0 {
		c.InterruptionDedupWindow = def.InterruptionDedupWindow
	}
	return c
}
