package transcribe

import "context"

// Status is the job state reported by the transcription collaborator.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// NormalizeStatus maps any unrecognized collaborator value to IN_PROGRESS;
// only the two terminal values are meaningful to the pipeline.
func NormalizeStatus(raw string) Status {
	switch Status(raw) {
	case StatusCompleted:
		return StatusCompleted
	case StatusFailed:
		return StatusFailed
	default:
		return StatusInProgress
	}
}

// StartJobInput describes a transcription job submission.
type StartJobInput struct {
	Name         string
	AudioURI     string
	MediaFormat  string
	LanguageCode string
	OutputBucket string
}

// Job is the collaborator's view of a transcription job. Exactly one of
// TranscriptKey (results object in OutputBucket) or TranscriptURI (direct
// download location) is populated on completion, depending on the
// collaborator's delivery mode.
type Job struct {
	Name          string
	Status        Status
	TranscriptKey string
	TranscriptURI string
	FailureReason string
}

// Client is the transcription collaborator boundary.
type Client interface {
	StartJob(ctx context.Context, input StartJobInput) error
	GetJob(ctx context.Context, name string) (Job, error)
}
