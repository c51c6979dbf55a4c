package domain

import (
	"path/filepath"
	"slices"
	"strings"
)

// ReloadMode is how connected browsers are refreshed after a task wrote files.
type ReloadMode string

const (
	// ReloadAuto derives the mode from the written files.
	ReloadAuto ReloadMode = ""
	// ReloadNone disables browser notification for the task.
	ReloadNone ReloadMode = "none"
	// ReloadInject hot-swaps stylesheets without reloading the page.
	ReloadInject ReloadMode = "inject"
	// ReloadFull reloads the page.
	ReloadFull ReloadMode = "full"
)

// ParseReloadMode validates a configured reload mode.
func ParseReloadMode(s string) (ReloadMode, error) {
	switch m := ReloadMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ReloadAuto, ReloadNone, ReloadInject, ReloadFull:
		return m, nil
	default:
		return "", Tag(ErrInvalidReloadMode, "mode", s)
	}
}

// ReloadEvent is sent to connected browser sessions.
type ReloadEvent struct {
	Mode  ReloadMode
	Paths []string
}

// ResolveReloadMode picks the reload mode for a set of written paths.
// An explicit mode wins; otherwise stylesheets are injected and anything else
// reloads the page.
func ResolveReloadMode(explicit ReloadMode, written []string) ReloadMode {
	if explicit != ReloadAuto {
		return explicit
	}
	if len(written) == 0 {
		return ReloadNone
	}
	for _, p := range written {
		ext := strings.ToLower(filepath.Ext(p))
		if ext != ".css" && ext != ".map" {
			return ReloadFull
		}
	}
	return ReloadInject
}

// Merge combines the reload needs of two tasks. A full reload wins over an
// injection, and injections accumulate their paths.
func (e ReloadEvent) Merge(other ReloadEvent) ReloadEvent {
	switch {
	case e.Mode == ReloadFull || other.Mode == ReloadFull:
		return ReloadEvent{Mode: ReloadFull}
	case e.Mode == ReloadInject && other.Mode == ReloadInject:
		paths := slices.Clone(e.Paths)
		for _, p := range other.Paths {
			if !slices.Contains(paths, p) {
				paths = append(paths, p)
			}
		}
		return ReloadEvent{Mode: ReloadInject, Paths: paths}
	case other.Mode == ReloadInject:
		return other
	case e.Mode == ReloadInject:
		return e
	default:
		return ReloadEvent{Mode: ReloadNone}
	}
}
