package ports

import "go.trai.ch/basis/internal/core/domain"

// Hasher defines the interface for computing hashes.
//
//go:generate mockgen -destination=mocks/mock_hasher.go -package=mocks -source=hasher.go
type Hasher interface {
	// ComputeInputHash computes the input hash for a task from its configuration and resolved inputs.
	ComputeInputHash(task *domain.Task, inputs []string, root string) (string, error)

	// ComputeOutputHash computes the hash of the given output files.
	ComputeOutputHash(outputs []string, root string) (string, error)
}
