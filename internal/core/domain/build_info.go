package domain

import "time"

// BuildInfo represents the recorded result of a task execution.
// It lets the scheduler skip a task whose inputs and outputs are unchanged.
type BuildInfo struct {
	TaskName   string    `json:"task_name,omitzero"`
	InputHash  string    `json:"input_hash,omitzero"`
	OutputHash string    `json:"output_hash,omitzero"`
	Outputs    []string  `json:"outputs,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
}
