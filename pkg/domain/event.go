package domain

import "time"

// EventType names a task lifecycle event.
type EventType string

const (
	EventTypeTaskSubmitted EventType = "task.submitted"
	EventTypeTaskStarted   EventType = "task.started"
	EventTypeTaskProgress  EventType = "task.progress"
	EventTypeTaskCompleted EventType = "task.completed"
	EventTypeTaskFailed    EventType = "task.failed"
	EventTypeTaskCancelled EventType = "task.cancelled"
)

// TopicTaskEvents is the event bus topic every task event is published on.
const TopicTaskEvents = "task.events"

// Event is published on the event bus while tasks move through their lifecycle.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	TaskID    string                 `json:"task_id"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
