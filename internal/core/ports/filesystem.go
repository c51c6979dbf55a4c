package ports

import "go.trai.ch/basis/internal/core/domain"

// FileSystem defines the file operations of the pipeline.
// All paths are slash-separated and relative to root.
//
//go:generate mockgen -source=filesystem.go -destination=mocks/mock_filesystem.go -package=mocks
type FileSystem interface {
	// Resolve expands the file set into the sorted list of matching files.
	Resolve(root string, set domain.FileSet) ([]string, error)

	// ReadFile returns the contents of a file.
	ReadFile(root, rel string) ([]byte, error)

	// WriteFile writes data atomically, creating parent directories.
	// It reports false when the file already held identical content and was left untouched.
	WriteFile(root, rel string, data []byte) (bool, error)

	// Remove deletes the files matching the globs and returns the removed paths.
	Remove(root string, globs []string) ([]string, error)

	// Match reports whether rel belongs to the file set.
	Match(set domain.FileSet, rel string) bool
}
