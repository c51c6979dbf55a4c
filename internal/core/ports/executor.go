// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"
)

// Command describes an external process invocation.
type Command struct {
	// Args holds the program and its arguments.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds extra "KEY=VALUE" pairs added to the inherited environment.
	Env []string
	// Stdin is connected to the process standard input when non-nil.
	Stdin io.Reader
	// Stdout and Stderr receive the process output.
	Stdout io.Writer
	Stderr io.Writer
}

// Executor defines the interface for running external commands.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the command and waits for it to exit.
	// It returns an error wrapping domain.ErrCommandFailed when the process fails.
	Execute(ctx context.Context, cmd Command) error
}
