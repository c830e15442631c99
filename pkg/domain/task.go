package domain

import "time"

// TaskStatus is the lifecycle state of a pipeline task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

// RunRequest describes one pipeline run.
type RunRequest struct {
	Query       string       `json:"query"`
	Sources     []Source     `json:"sources"`
	Limit       int          `json:"limit"`
	Channel     string       `json:"channel,omitempty"`
	Subreddit   string       `json:"subreddit,omitempty"`
	Storyboards bool         `json:"storyboards"`
	Provider    ProviderName `json:"provider,omitempty"`
}

// Progress is a snapshot of how far a run has got.
type Progress struct {
	Stage     string `json:"stage"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Message   string `json:"message,omitempty"`
}

// Task tracks one submitted pipeline run.
type Task struct {
	ID          string     `json:"id"`
	Request     RunRequest `json:"request"`
	Status      TaskStatus `json:"status"`
	Progress    Progress   `json:"progress"`
	ReportID    string     `json:"report_id,omitempty"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
