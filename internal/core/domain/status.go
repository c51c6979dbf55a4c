package domain

// TaskStatus represents the lifecycle state of a task within one run.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is waiting for its prerequisites.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusRunning indicates the task is currently executing.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task executed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task execution failed.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCached indicates the task was skipped because its inputs and outputs were unchanged.
	TaskStatusCached TaskStatus = "cached"
	// TaskStatusBlocked indicates the task never ran because a prerequisite failed.
	TaskStatusBlocked TaskStatus = "blocked"
)

// IsTerminal reports whether the status is final for the run.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCached, TaskStatusBlocked:
		return true
	default:
		return false
	}
}

// Succeeded reports whether dependents may run after a task with this status.
func (s TaskStatus) Succeeded() bool {
	return s == TaskStatusCompleted || s == TaskStatusCached
}
