package queue

import "time"

// Status represents the lifecycle of a pipeline job record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	// StatusSkipped records recursion-guard no-ops: triggers on keys under
	// the reserved audio prefix succeed without doing work.
	StatusSkipped Status = "skipped"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusSkipped,
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether the job reached a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// Job is one ledger record per triggering video.
type Job struct {
	ID             string
	SourceBucket   string
	SourceKey      string
	Status         Status
	Stage          string
	TranscribeName string
	DestinationKey string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
