package ports

import (
	"context"
	"io"

	"go.trai.ch/basis/internal/core/domain"
)

// TaskRunner executes the unit of work of a single task.
//
//go:generate mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks
type TaskRunner interface {
	// Inputs resolves the source files of the task.
	Inputs(task *domain.Task, root string) ([]string, error)

	// Run cleans, reads, transforms and writes the task files.
	// Log lines are written to log. Nothing is written to disk unless every stage succeeded.
	Run(ctx context.Context, task *domain.Task, root string, log io.Writer) (domain.TaskResult, error)
}
