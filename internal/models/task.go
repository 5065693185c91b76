package models

import "time"

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// TitleMaxLength is the maximum accepted length for a task title
const TitleMaxLength = 500

// Task represents a single todo item owned by exactly one user
type Task struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsCompleted reports whether the task is in its terminal state
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// ParseTaskStatus validates a status filter string ("" means no filter)
func ParseTaskStatus(s string) (*TaskStatus, bool) {
	switch TaskStatus(s) {
	case "":
		return nil, true
	case TaskStatusPending:
		status := TaskStatusPending
		return &status, true
	case TaskStatusCompleted:
		status := TaskStatusCompleted
		return &status, true
	}
	return nil, false
}
