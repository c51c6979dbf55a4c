// Package detector inspects the terminal and CI environment to pick the
// output mode and whether desktop notifications make sense.
package detector

import (
	"os"
	"strings"

	"golang.org/x/term"

	"go.trai.ch/basis/internal/core/domain"
)

// OutputMode represents the rendering mode for task output.
type OutputMode int

const (
	// ModeAuto picks a mode from the environment.
	ModeAuto OutputMode = iota
	// ModePretty prints colored output for interactive terminals.
	ModePretty
	// ModeLinear prints plain prefixed lines for CI logs and pipes.
	ModeLinear
	// ModeJSON prints one JSON object per event.
	ModeJSON
)

// String returns the flag value selecting the mode.
func (m OutputMode) String() string {
	switch m {
	case ModePretty:
		return "pretty"
	case ModeLinear:
		return "linear"
	case ModeJSON:
		return "json"
	default:
		return "auto"
	}
}

// Environment describes where the process runs.
type Environment struct {
	TTY bool
	CI  bool
}

// Detect inspects stdout and the CI variable.
func Detect() Environment {
	return Environment{
		TTY: term.IsTerminal(int(os.Stdout.Fd())),
		CI:  isCI(os.Getenv("CI")),
	}
}

func isCI(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	return value == "true" || value == "1"
}

// Mode returns the output mode recommended for the environment.
func (e Environment) Mode() OutputMode {
	if !e.TTY || e.CI {
		return ModeLinear
	}
	return ModePretty
}

// Notifications reports whether desktop notifications should be shown.
// CI machines have no desktop to notify.
func (e Environment) Notifications() bool {
	return !e.CI
}

// DetectEnvironment returns the recommended output mode for the running process.
func DetectEnvironment() OutputMode {
	return Detect().Mode()
}

// ResolveMode applies the --output-mode flag to the detected mode.
func ResolveMode(autoDetected OutputMode, flag string) (OutputMode, error) {
	switch strings.ToLower(flag) {
	case "", "auto":
		return autoDetected, nil
	case "pretty", "tty":
		return ModePretty, nil
	case "linear", "ci":
		return ModeLinear, nil
	case "json":
		return ModeJSON, nil
	default:
		return ModeAuto, domain.Tag(domain.ErrInvalidOutputMode, "mode", flag)
	}
}
