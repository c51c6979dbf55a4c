// Package cas stores the build info records of the incremental cache.
package cas

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
)

// Store implements ports.BuildInfoStore with one JSON file per task under
// <root>/.basis/store.
type Store struct{}

var _ ports.BuildInfoStore = (*Store)(nil)

// NewStore creates a Store.
func NewStore() *Store {
	return &Store{}
}

// Get retrieves the build info for a task. A missing record is nil, nil.
func (s *Store) Get(root, taskName string) (*domain.BuildInfo, error) {
	filename := s.filename(root, taskName)
	//nolint:gosec // Path is built from the project root and a hashed name
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(domain.Caused(domain.ErrStoreReadFailed, err), "task", taskName)
	}

	var info domain.BuildInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, zerr.With(domain.Caused(domain.ErrStoreUnmarshalFailed, err), "task", taskName)
	}
	if info.TaskName != taskName {
		// Hash collision or a hand-edited file: treat as a miss.
		return nil, nil
	}
	return &info, nil
}

// Put stores the build info, replacing the previous record atomically.
func (s *Store) Put(root string, info domain.BuildInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return domain.Caused(domain.ErrStoreMarshalFailed, err)
	}

	filename := s.filename(root, info.TaskName)
	if err := os.MkdirAll(filepath.Dir(filename), domain.DirPerm); err != nil {
		return domain.Caused(domain.ErrStoreCreateFailed, err)
	}

	tmp := filename + ".tmp"
	if err := os.WriteFile(tmp, data, domain.FilePerm); err != nil {
		return zerr.With(domain.Caused(domain.ErrStoreWriteFailed, err), "task", info.TaskName)
	}
	if err := os.Rename(tmp, filename); err != nil {
		_ = os.Remove(tmp)
		return zerr.With(domain.Caused(domain.ErrStoreWriteFailed, err), "task", info.TaskName)
	}
	return nil
}

// Clear removes every record under root.
func (s *Store) Clear(root string) error {
	if err := os.RemoveAll(filepath.Join(root, domain.DefaultStorePath())); err != nil {
		return domain.Caused(domain.ErrStoreWriteFailed, err)
	}
	return nil
}

func (s *Store) filename(root, taskName string) string {
	name := strconv.FormatUint(xxhash.Sum64String(taskName), 16) + ".json"
	return filepath.Join(root, domain.DefaultStorePath(), name)
}
