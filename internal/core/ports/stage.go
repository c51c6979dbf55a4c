package ports

import (
	"context"

	"go.trai.ch/basis/internal/core/domain"
)

//go:generate mockgen -source=stage.go -destination=mocks/mock_stage.go -package=mocks

// Stage is one transformation step of a task pipeline.
// It maps the input files to the output files and never touches the disk.
type Stage interface {
	// Name returns the stage kind, used in error messages.
	Name() string

	// Transform processes the files. Malformed input fails with a *domain.TransformError.
	Transform(ctx context.Context, files []domain.File) ([]domain.File, error)
}

// StageFactory builds stages from their declarations.
type StageFactory interface {
	// New validates the stage options and returns the stage for a project rooted at root.
	// Unknown kinds fail with domain.ErrUnknownStage.
	New(root string, spec domain.StageSpec) (Stage, error)
}
