package domain

// Task represents a unit of work in the asset pipeline.
// A task without stages only orders its prerequisites (an aggregate) or
// triggers a browser reload.
type Task struct {
	Name         InternedString
	Dependencies []InternedString
	Source       FileSet
	Base         string
	Stages       []StageSpec
	Dest         string
	Clean        []string
	Reload       ReloadMode
}

// HasWork reports whether the task reads sources or deletes outputs.
func (t *Task) HasWork() bool {
	return len(t.Stages) > 0 || len(t.Clean) > 0
}

// IsReloadOnly reports whether the task exists only to refresh browsers.
func (t *Task) IsReloadOnly() bool {
	return !t.HasWork() && (t.Reload == ReloadFull || t.Reload == ReloadInject)
}

// TaskResult describes the files a task run produced.
type TaskResult struct {
	// Outputs lists every output path relative to the project root.
	Outputs []string
	// Written lists the outputs whose content changed on disk.
	Written []string
	// Removed lists the files deleted by the clean step.
	Removed []string
}
