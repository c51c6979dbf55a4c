package fs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher provides hashing functionality for tasks and files.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// ComputeFileHash computes the XXHash of a file's content.
func (h *Hasher) ComputeFileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, domain.FileSystemError(zerr.Wrap(err, "failed to open file"), path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, domain.FileSystemError(zerr.Wrap(err, "failed to hash file content"), path)
	}

	return hasher.Sum64(), nil
}

// ComputeInputHash computes a single hash representing the task
// configuration and the content of its resolved source files.
func (h *Hasher) ComputeInputHash(task *domain.Task, inputs []string, root string) (string, error) {
	hasher := xxhash.New()

	h.hashTaskDefinition(task, hasher)

	sorted := slices.Clone(inputs)
	slices.Sort(sorted)
	for _, input := range sorted {
		if err := h.hashFile(root, input, hasher); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

// hashTaskDefinition hashes everything in the task that shapes its outputs.
func (h *Hasher) hashTaskDefinition(task *domain.Task, hasher *xxhash.Digest) {
	field := func(s string) {
		_, _ = hasher.WriteString(s)
		_, _ = hasher.Write([]byte{0})
	}
	section := func() { _, _ = hasher.Write([]byte{0}) }

	field(task.Name.String())
	for _, glob := range task.Source.Globs() {
		field(glob)
	}
	section()
	field(task.Base)
	field(task.Dest)
	for _, glob := range task.Clean {
		field(glob)
	}
	section()

	// fmt prints maps with sorted keys, so options hash deterministically.
	for _, stage := range task.Stages {
		field(string(stage.Kind))
		field(fmt.Sprintf("%v", map[string]any(stage.Options)))
	}
	section()

	for _, dep := range task.Dependencies {
		field(dep.String())
	}
	section()
}

func (h *Hasher) hashFile(root, rel string, mainHasher io.Writer) error {
	_, _ = mainHasher.Write([]byte(rel))
	_, _ = mainHasher.Write([]byte{0})

	hash, err := h.ComputeFileHash(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}

	if err := binary.Write(mainHasher, binary.LittleEndian, hash); err != nil {
		return zerr.Wrap(err, "failed to write hash to digest")
	}
	return nil
}

// ComputeOutputHash computes the hash of the output files.
// A missing output fails with an error matching fs.ErrNotExist.
func (h *Hasher) ComputeOutputHash(outputs []string, root string) (string, error) {
	sorted := slices.Clone(outputs)
	slices.Sort(sorted)

	hasher := xxhash.New()
	for _, output := range sorted {
		if err := h.hashFile(root, output, hasher); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}
