package analyzer

// Severity grades how disruptive a detected event is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// PauseType classifies a detected pause.
type PauseType string

const (
	PauseShort       PauseType = "short_pause"
	PauseMedium      PauseType = "medium_pause"
	PauseLong        PauseType = "long_pause"
	PauseAgentDelay  PauseType = "agent_delay"
	PauseConversation PauseType = "conversation_pause"
	PauseEnhancedGap PauseType = "enhanced_speech_gap"
)

// InterruptionType classifies a detected interruption.
type InterruptionType string

const (
	InterruptionAudioOverlap       InterruptionType = "audio_overlap"
	InterruptionAgentInterruptsUser InterruptionType = "agent_interrupts_user"
	InterruptionUserInterruptsAgent InterruptionType = "user_interrupts_agent"
	InterruptionSystemOverlap      InterruptionType = "system_overlap"
	InterruptionRapidResponse      InterruptionType = "rapid_response"
)

// Segment is a contiguous interval judged to contain voiced audio. Segments
// within one analysis are time-ordered and non-overlapping.
type Segment struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// Pause is a silence between utterances exceeding the sensitivity-dependent
// minimum duration.
type Pause struct {
	Start      float64       `json:"start_time"`
	End        float64       `json:"end_time"`
	Duration   float64       `json:"duration"`
	Type       PauseType     `json:"type"`
	Severity   Severity      `json:"severity"`
	Confidence float64       `json:"confidence,omitempty"`
	Context    *PauseContext `json:"context,omitempty"`
}

// PauseContext carries the transcript turns surrounding a transcript-derived
// pause.
type PauseContext struct {
	AfterRole       Role   `json:"after_role"`
	BeforeRole      Role   `json:"before_role"`
	PreviousContent string `json:"previous_content"`
	NextContent     string `json:"next_content"`
}

// Interruption marks a point where one speaker cut into another.
type Interruption struct {
	Time        float64              `json:"time"`
	GapDuration float64              `json:"gap_duration"`
	Type        InterruptionType     `json:"type"`
	Confidence  float64              `json:"confidence"`
	Severity    Severity             `json:"severity,omitempty"`
	Context     *InterruptionContext `json:"context,omitempty"`
}

// InterruptionContext names the roles involved in a transcript-derived
// interruption.
type InterruptionContext struct {
	InterruptedRole  Role `json:"interrupted_role"`
	InterruptingRole Role `json:"interrupting_role"`
}

// Termination describes how the call ended.
type Termination struct {
	SessionStartedProperly bool     `json:"session_started_properly"`
	SessionEndedProperly   bool     `json:"session_ended_properly"`
	AbruptEnding           bool     `json:"abrupt_ending"`
	DuplicateEndings       bool     `json:"duplicate_endings"`
	LastSpeakerWasUser     bool     `json:"last_speaker_was_user"`
	Issues                 []string `json:"issues"`
}

// AudioInfo summarises the analyzed waveform.
type AudioInfo struct {
	Duration         float64 `json:"duration"`
	SpeechTime       float64 `json:"speech_time"`
	SpeechPercentage float64 `json:"speech_percentage"`
}

// Summary rolls the detected events up into counts and a health score.
type Summary struct {
	PauseCount              int     `json:"pause_count"`
	AgentDelayCount         int     `json:"agent_delay_count"`
	InterruptionCount       int     `json:"interruption_count"`
	TerminationIssues       int     `json:"termination_issues"`
	ConversationHealthScore float64 `json:"conversation_health_score"`
}

// Result is the persisted analysis blob for one call.
type Result struct {
	AudioInfo      AudioInfo      `json:"audio_info"`
	SpeechSegments []Segment      `json:"speech_segments"`
	Timeline       []Turn         `json:"conversation_timeline,omitempty"`
	Pauses         []Pause        `json:"pauses"`
	Interruptions  []Interruption `json:"interruptions"`
	Termination    Termination    `json:"termination"`
	Summary        Summary        `json:"summary"`
}
