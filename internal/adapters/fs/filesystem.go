package fs

import (
	"bytes"
	"errors"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/zerr"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
)

var _ ports.FileSystem = (*FileSystem)(nil)

// FileSystem implements ports.FileSystem on the local disk.
type FileSystem struct{}

// NewFileSystem creates a new FileSystem.
func NewFileSystem() *FileSystem {
	return &FileSystem{}
}

// Resolve expands the include globs of set and drops the paths matching an
// exclude glob. A literal path that does not exist is an error; a pattern
// matching nothing is not.
func (f *FileSystem) Resolve(root string, set domain.FileSet) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var out []string

	for _, pattern := range set.Include {
		pattern = path.Clean(pattern)
		if !doublestar.ValidatePattern(pattern) {
			return nil, zerr.With(zerr.With(zerr.New("invalid glob pattern"), "pattern", pattern), "file_set", set.Name)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, domain.FileSystemError(zerr.Wrap(err, "failed to glob path"), pattern)
		}
		if len(matches) == 0 && !hasMeta(pattern) {
			return nil, domain.FileSystemError(iofs.ErrNotExist, pattern)
		}
		for _, m := range matches {
			if seen[m] || excluded(set, m) || inSkippedDir(m) {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}

	slices.Sort(out)
	return out, nil
}

// ReadFile returns the contents of root/rel.
func (f *FileSystem) ReadFile(root, rel string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, domain.FileSystemError(err, rel)
	}
	return data, nil
}

// WriteFile writes data to root/rel through a temporary file renamed into
// place. An existing file with identical content is left untouched.
func (f *FileSystem) WriteFile(root, rel string, data []byte) (bool, error) {
	target, err := f.within(root, rel)
	if err != nil {
		return false, err
	}

	if existing, err := os.ReadFile(target); err == nil && bytes.Equal(existing, data) {
		return false, nil
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return false, domain.FileSystemError(err, rel)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return false, domain.FileSystemError(err, rel)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // Already renamed on success

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return false, domain.FileSystemError(err, rel)
	}
	if err := tmp.Close(); err != nil {
		return false, domain.FileSystemError(err, rel)
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return false, domain.FileSystemError(err, rel)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return false, domain.FileSystemError(err, rel)
	}
	return true, nil
}

// Remove deletes the files matching globs, where "!" entries exclude paths.
func (f *FileSystem) Remove(root string, globs []string) ([]string, error) {
	set := domain.ParseFileSet("clean", globs)
	fsys := os.DirFS(root)

	var removed []string
	for _, pattern := range set.Include {
		pattern = path.Clean(pattern)
		if _, err := f.within(root, pattern); err != nil {
			return removed, err
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return removed, domain.FileSystemError(zerr.Wrap(err, "failed to glob path"), pattern)
		}
		for _, m := range matches {
			if excluded(set, m) || slices.Contains(removed, m) {
				continue
			}
			err := os.Remove(filepath.Join(root, filepath.FromSlash(m)))
			if err != nil && !errors.Is(err, iofs.ErrNotExist) {
				return removed, domain.FileSystemError(err, m)
			}
			removed = append(removed, m)
		}
	}
	slices.Sort(removed)
	return removed, nil
}

// Match reports whether rel belongs to the file set.
func (f *FileSystem) Match(set domain.FileSet, rel string) bool {
	rel = filepath.ToSlash(rel)
	if excluded(set, rel) {
		return false
	}
	for _, pattern := range set.Include {
		if doublestar.MatchUnvalidated(path.Clean(pattern), rel) {
			return true
		}
	}
	return false
}

// within resolves rel below root and rejects paths escaping it.
func (f *FileSystem) within(root, rel string) (string, error) {
	clean := path.Clean(filepath.ToSlash(rel))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", domain.Tag(domain.ErrOutputPathOutsideRoot, "path", rel)
	}
	return filepath.Join(root, filepath.FromSlash(clean)), nil
}

func excluded(set domain.FileSet, rel string) bool {
	for _, pattern := range set.Exclude {
		if doublestar.MatchUnvalidated(path.Clean(pattern), rel) {
			return true
		}
	}
	return false
}

func inSkippedDir(rel string) bool {
	for _, part := range strings.Split(path.Dir(rel), "/") {
		if IsSkippedDir(part) {
			return true
		}
	}
	return false
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{\\")
}
