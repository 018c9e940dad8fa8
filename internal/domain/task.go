package domain

import "time"

// TaskState enumerates orchestration milestones.
type TaskState string

const (
	TaskQueued       TaskState = "queued"
	TaskFetching     TaskState = "fetching"
	TaskSynthesizing TaskState = "synthesizing"
	TaskCompleted    TaskState = "completed"
	TaskFailed       TaskState = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// FailureKind is the machine-readable classification of a task failure.
type FailureKind string

const (
	KindValidation FailureKind = "validation"
	KindSynthesis  FailureKind = "synthesis"
	KindTimeout    FailureKind = "timeout"
	KindCancelled  FailureKind = "cancelled"
)

// Failure carries a kind plus a human-readable message. Internal details
// (stack traces, raw service errors) never go into Message.
type Failure struct {
	Kind    FailureKind
	Message string
}

func (f *Failure) Error() string {
	return string(f.Kind) + ": " + f.Message
}

// NewFailure builds a task failure value.
func NewFailure(kind FailureKind, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

// Task tracks one generation request through extraction and synthesis.
// Owned by the task store; callers only ever see snapshots.
type Task struct {
	ID        string
	State     TaskState
	Progress  int // 0-100, monotonically non-decreasing
	Message   string
	Result    *FactsheetResult // set only in TaskCompleted
	Failure   *Failure         // set only in TaskFailed
	CreatedAt time.Time
	UpdatedAt time.Time
}
