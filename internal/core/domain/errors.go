package domain

import "go.trai.ch/zerr"

var (
	// ErrTaskAlreadyExists is returned when attempting to add a task with a name that already exists.
	ErrTaskAlreadyExists = zerr.New("task already exists")

	// ErrMissingDependency is returned when a task references a dependency that doesn't exist in the graph.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when a cycle is detected in the task dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrTaskNotFound is returned when a requested task is not found in the graph.
	ErrTaskNotFound = zerr.New("task not found")

	// ErrInvalidTaskName is returned when a task name contains invalid characters.
	ErrInvalidTaskName = zerr.New("invalid task name")

	// ErrNoTargetsSpecified is returned when no targets are specified for a run.
	ErrNoTargetsSpecified = zerr.New("no targets specified")

	// ErrUnknownFileSet is returned when a task or watch rule references an undeclared file set.
	ErrUnknownFileSet = zerr.New("unknown file set")

	// ErrUnknownStage is returned when a task declares a stage kind that does not exist.
	ErrUnknownStage = zerr.New("unknown stage")

	// ErrInvalidStageOption is returned when a stage option is unknown or has the wrong type.
	ErrInvalidStageOption = zerr.New("invalid stage option")

	// ErrInvalidReloadMode is returned when a task declares an unsupported reload mode.
	ErrInvalidReloadMode = zerr.New("invalid reload mode, expected 'none', 'inject' or 'full'")

	// ErrInvalidDuration is returned when a duration in the configuration cannot be parsed.
	ErrInvalidDuration = zerr.New("invalid duration")

	// ErrMissingDestination is returned when a task with stages has no destination directory.
	ErrMissingDestination = zerr.New("task with stages requires a destination")

	// ErrOutputPathOutsideRoot is returned when an output path is outside the project root.
	ErrOutputPathOutsideRoot = zerr.New("output path is outside project root")

	// ErrTransformFailed is the category of every stage transformation failure.
	ErrTransformFailed = zerr.New("transform failed")

	// ErrLintFailed is returned when a lint stage reports at least one issue.
	ErrLintFailed = zerr.New("lint failed")

	// ErrFileSystem is the category of file system failures (missing sources, permissions).
	ErrFileSystem = zerr.New("file system error")

	// ErrStoreCreateFailed is returned when the build info store directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create build info store directory")

	// ErrStoreReadFailed is returned when the build info cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read build info")

	// ErrStoreUnmarshalFailed is returned when the build info cannot be unmarshaled.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal build info")

	// ErrStoreMarshalFailed is returned when the build info cannot be marshaled.
	ErrStoreMarshalFailed = zerr.New("failed to marshal build info")

	// ErrStoreWriteFailed is returned when the build info cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write build info")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigNotFound is returned when the config file cannot be found.
	ErrConfigNotFound = zerr.New("could not find basis.yaml")

	// ErrConfigExists is returned by init when a configuration file is already present.
	ErrConfigExists = zerr.New("basis.yaml already exists")

	// ErrBuildExecutionFailed is returned when the build execution fails.
	ErrBuildExecutionFailed = zerr.New("build execution failed")

	// ErrTaskExecutionFailed is returned when a task execution fails.
	ErrTaskExecutionFailed = zerr.New("task execution failed")

	// ErrInputResolutionFailed is returned when input resolution fails.
	ErrInputResolutionFailed = zerr.New("failed to resolve inputs")

	// ErrInputHashComputationFailed is returned when input hash computation fails.
	ErrInputHashComputationFailed = zerr.New("failed to compute input hash")

	// ErrCommandFailed is returned when an external command exits with an error.
	ErrCommandFailed = zerr.New("command failed")

	// ErrWatcherStartFailed is returned when the file watcher cannot be started.
	ErrWatcherStartFailed = zerr.New("failed to start file watcher")

	// ErrReloadServerFailed is returned when the reload server cannot listen.
	ErrReloadServerFailed = zerr.New("reload server failed")

	// ErrInvalidOutputMode is returned when --output-mode names an unknown mode.
	ErrInvalidOutputMode = zerr.New("invalid output mode, expected 'auto', 'pretty', 'linear' or 'json'")

	// ErrNotificationFailed is returned when a desktop notification cannot be shown.
	ErrNotificationFailed = zerr.New("notification failed")

	// ErrUnsupportedMediaType is returned when an attachment's extension is not an allowed upload type.
	ErrUnsupportedMediaType = zerr.New("unsupported media type")

	// ErrAttachmentStoreFailed is returned when the attachment database cannot be used.
	ErrAttachmentStoreFailed = zerr.New("attachment store failed")
)
