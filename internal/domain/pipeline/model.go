package pipeline

import (
	"time"

	"github.com/yanqian/note-it-down/internal/domain/note"
)

// State is the session stage.
type State string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateSummarizing  State = "summarizing"
	StatePersisting   State = "persisting"
)

// Config tunes the orchestrator.
type Config struct {
	// MinTranscriptChars is the trimmed length a transcript must exceed to be summarized.
	MinTranscriptChars int
	TickInterval       time.Duration
	Language           string
	ArchivePrefix      string
	KeepAudio          bool
}

// Status is a point-in-time view of the session.
type Status struct {
	State          State      `json:"state"`
	ElapsedSeconds int64      `json:"elapsedSeconds"`
	RecordingID    string     `json:"recordingId,omitempty"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
}

// Warnings reported on a Result. Error details go to the log only.
const (
	WarningSummaryFailed   = "summary could not be generated"
	WarningSummaryNotSaved = "summary could not be saved"
)

// Result is what a finished session hands back to the caller.
type Result struct {
	Transcript string        `json:"transcript"`
	Summary    *note.Summary `json:"summary,omitempty"`
	Persisted  bool          `json:"persisted"`
	Warning    string        `json:"warning,omitempty"`
}
