package logger

// ErrorEntry exposes errorEntry for tests.
type ErrorEntry = errorEntry

// Error chain formatting for tests.
var (
	CollectErrorEntries = collectErrorEntries
	FormatErrorEntries  = formatErrorEntries
)
