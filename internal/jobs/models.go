package jobs

import (
	"errors"
	"strings"
	"time"
)

// State is a step of the generation state machine.
type State string

const (
	StateQueued       State = "queued"
	StatePreflight    State = "preflight"
	StateOutlining    State = "outlining"
	StateScripting    State = "scripting"
	StateSynthesizing State = "synthesizing"
	StateFinalizing   State = "finalizing"
	StateReady        State = "ready"
	StateOptimizing   State = "optimizing"
	StateQuotaPaused  State = "quota_paused"
	StateQuotaBlocked State = "quota_blocked"
	// StateFailed is an internal signal only; observers see StateOptimizing.
	StateFailed State = "failed"
)

var allStates = []State{
	StateQueued,
	StatePreflight,
	StateOutlining,
	StateScripting,
	StateSynthesizing,
	StateFinalizing,
	StateReady,
	StateOptimizing,
	StateQuotaPaused,
	StateQuotaBlocked,
	StateFailed,
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	for _, state := range allStates {
		if state == normalized {
			return state, true
		}
	}
	return "", false
}

// Visible maps internal states to what observers may see.
func (s State) Visible() State {
	if s == StateFailed {
		return StateOptimizing
	}
	return s
}

// Terminal reports whether the state ends the job.
func (s State) Terminal() bool {
	return s == StateReady
}

// Mode is the job's generation fidelity tier.
type Mode string

const (
	ModePrimary   Mode = "primary"
	ModeOptimized Mode = "optimized"
	ModeFailsafe  Mode = "failsafe"
)

// Rank orders modes by degradation; a job's mode rank never decreases.
func (m Mode) Rank() int {
	switch m {
	case ModePrimary:
		return 0
	case ModeOptimized:
		return 1
	case ModeFailsafe:
		return 2
	default:
		return -1
	}
}

// The two fixed hosts every transcript line is attributed to.
const (
	HostA = "Alex"
	HostB = "Sam"
)

// IsHost reports whether speaker is one of the two fixed hosts.
func IsHost(speaker string) bool {
	return speaker == HostA || speaker == HostB
}

var (
	// ErrFrozen is returned when mutating a ready job.
	ErrFrozen = errors.New("job is ready and frozen")
	// ErrOutOfOrder is returned when a chunk is committed out of outline order.
	ErrOutOfOrder = errors.New("chunk committed out of order")
	// ErrIncomplete is returned when completing a job with uncommitted chunks.
	ErrIncomplete = errors.New("job has uncommitted chunks")
	// ErrNoOutline is returned when segments are committed before an outline exists.
	ErrNoOutline = errors.New("job has no outline")
)

// OutlineSegment is one thematic part of the episode.
type OutlineSegment struct {
	Index  int      `json:"index"`
	Title  string   `json:"title,omitempty"`
	Topics []string `json:"topics"`
}

// Outline is the ordered segment plan for an episode.
type Outline []OutlineSegment

// Chapter marks one outline segment on the episode timeline.
type Chapter struct {
	Title   string `json:"title"`
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
	Summary string `json:"summary,omitempty"`
}

// TranscriptLine is one host turn on the full episode timeline.
type TranscriptLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
}

// EpisodeAudio is the finished episode bundle.
type EpisodeAudio struct {
	Audio      string           `json:"audio"`
	Chapters   []Chapter        `json:"chapters"`
	Transcript []TranscriptLine `json:"transcript"`
	ArtworkURL string           `json:"artworkUrl,omitempty"`
	DurationMs int64            `json:"durationMs"`
	SampleRate int              `json:"sampleRate"`
}

// Job is one episode generation attempt for a notebook.
type Job struct {
	ID                string           `json:"id"`
	NotebookID        string           `json:"notebookId"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
	State             State            `json:"state"`
	Mode              Mode             `json:"mode"`
	Progress          float64          `json:"progress"`
	CompletedChunks   int              `json:"completedChunks"`
	TotalChunks       int              `json:"totalChunks"`
	Outline           Outline          `json:"outline,omitempty"`
	Chapters          []Chapter        `json:"chapters,omitempty"`
	PartialAudio      []string         `json:"partialAudio,omitempty"`
	PartialTranscript []TranscriptLine `json:"partialTranscript,omitempty"`
	SilentSegments    []int            `json:"silentSegments,omitempty"`
	Personality       string           `json:"personality"`
	Audio             *EpisodeAudio    `json:"audio,omitempty"`
	LastIssue         string           `json:"lastIssue,omitempty"`
}

// New creates a queued primary-mode job.
func New(id, notebookID, personality string, now time.Time) Job {
	return Job{
		ID:          id,
		NotebookID:  notebookID,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
		State:       StateQueued,
		Mode:        ModePrimary,
		Personality: personality,
	}
}

// Ready reports whether the job reached its terminal state.
func (j *Job) Ready() bool {
	return j.State.Terminal()
}

// SetState moves the job to state. Ready jobs cannot change state.
func (j *Job) SetState(state State) error {
	if j.Ready() {
		if state == StateReady {
			return nil
		}
		return ErrFrozen
	}
	if state == StateReady {
		return errors.New("use Complete to reach the ready state")
	}
	j.State = state
	return nil
}

// Degrade moves the mode forward to mode. It reports whether the mode changed;
// requests to move backwards are ignored.
func (j *Job) Degrade(mode Mode) (bool, error) {
	if j.Ready() {
		return false, ErrFrozen
	}
	if mode.Rank() <= j.Mode.Rank() {
		return false, nil
	}
	j.Mode = mode
	return true, nil
}

// AdvanceProgress raises progress to p, clamped to [0,1]. Lower values are ignored.
func (j *Job) AdvanceProgress(p float64) error {
	if j.Ready() {
		return ErrFrozen
	}
	if p > 1 {
		p = 1
	}
	if p > j.Progress {
		j.Progress = p
	}
	return nil
}

// SetOutline records the segment plan. A job that already has an outline keeps it.
func (j *Job) SetOutline(outline Outline, chapters []Chapter) error {
	if j.Ready() {
		return ErrFrozen
	}
	if len(j.Outline) > 0 {
		return nil
	}
	j.Outline = append(Outline(nil), outline...)
	j.Chapters = append([]Chapter(nil), chapters...)
	j.TotalChunks = len(outline)
	return nil
}

// CommitChunk appends the audio and transcript for segment index. Segments
// must be committed in order, exactly once.
func (j *Job) CommitChunk(index int, audio string, lines []TranscriptLine, silent bool) error {
	if j.Ready() {
		return ErrFrozen
	}
	if j.TotalChunks == 0 {
		return ErrNoOutline
	}
	if index != j.CompletedChunks || index >= j.TotalChunks {
		return ErrOutOfOrder
	}
	j.PartialAudio = append(j.PartialAudio, audio)
	j.PartialTranscript = append(j.PartialTranscript, lines...)
	if silent {
		j.SilentSegments = append(j.SilentSegments, index)
	}
	j.CompletedChunks++
	return nil
}

// Complete attaches the finished episode and freezes the job.
func (j *Job) Complete(audio EpisodeAudio) error {
	if j.Ready() {
		return ErrFrozen
	}
	if j.TotalChunks == 0 || j.CompletedChunks != j.TotalChunks {
		return ErrIncomplete
	}
	j.Audio = &audio
	j.Progress = 1
	j.State = StateReady
	return nil
}

// Clone returns a deep copy safe to hand to observers.
func (j Job) Clone() Job {
	clone := j
	if j.Outline != nil {
		clone.Outline = make(Outline, len(j.Outline))
		for i, segment := range j.Outline {
			segment.Topics = append([]string(nil), segment.Topics...)
			clone.Outline[i] = segment
		}
	}
	clone.Chapters = append([]Chapter(nil), j.Chapters...)
	clone.PartialAudio = append([]string(nil), j.PartialAudio...)
	clone.PartialTranscript = append([]TranscriptLine(nil), j.PartialTranscript...)
	clone.SilentSegments = append([]int(nil), j.SilentSegments...)
	if j.Audio != nil {
		audio := *j.Audio
		audio.Chapters = append([]Chapter(nil), j.Audio.Chapters...)
		audio.Transcript = append([]TranscriptLine(nil), j.Audio.Transcript...)
		clone.Audio = &audio
	}
	return clone
}

// Public returns the observer view: a deep copy with internal states remapped
// and diagnostics removed.
func (j Job) Public() Job {
	clone := j.Clone()
	clone.State = clone.State.Visible()
	clone.LastIssue = ""
	return clone
}
