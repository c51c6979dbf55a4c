// Package fs provides the file system adapters: glob resolution, atomic
// writes, directory walking and content hashing.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
	"slices"
)

// skippedDirs are never walked, resolved or watched.
var skippedDirs = []string{".git", ".jj", "node_modules", ".basis"}

// Walker provides file walking functionality.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields all files below root, skipping version control, dependency
// and state directories plus directories matching ignores.
// The yielded paths include root.
func (w *Walker) WalkFiles(root string, ignores []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if skip := w.shouldSkip(path != root, d, ignores); skip != nil {
				return skip
			}
			if d.IsDir() {
				return nil
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// WalkDirs yields root and every directory below it, with the same skip
// rules as WalkFiles.
func (w *Walker) WalkDirs(root string, ignores []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return err
				}
				return nil
			}
			if !d.IsDir() {
				return nil
			}
			if skip := w.shouldSkip(path != root, d, ignores); skip != nil {
				return skip
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// IsSkippedDir reports whether a directory name is always skipped.
func IsSkippedDir(name string) bool {
	return slices.Contains(skippedDirs, name)
}

// shouldSkip returns filepath.SkipDir for directories below the walk root
// that must not be entered.
func (w *Walker) shouldSkip(nested bool, d fs.DirEntry, ignores []string) error {
	name := d.Name()
	if d.IsDir() && nested && IsSkippedDir(name) {
		return filepath.SkipDir
	}
	for _, ignore := range ignores {
		if matched, _ := filepath.Match(ignore, name); matched && d.IsDir() && nested {
			return filepath.SkipDir
		}
	}
	return nil
}
