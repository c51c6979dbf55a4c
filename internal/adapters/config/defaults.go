package config

import (
	_ "embed"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"

	"go.trai.ch/basis/internal/core/domain"
)

// DefaultConfig is the basis.yaml written by "basis init".
//
//go:embed default.yaml
var DefaultConfig []byte

// WriteDefault writes DefaultConfig into dir and returns the file path.
// An existing file is only replaced when force is set.
func WriteDefault(dir string, force bool) (string, error) {
	target := filepath.Join(dir, domain.ConfigFileName)
	if !force {
		if _, err := os.Stat(target); err == nil {
			return "", domain.Tag(domain.ErrConfigExists, "path", target)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", domain.FileSystemError(err, target)
		}
	}
	if err := os.WriteFile(target, DefaultConfig, domain.FilePerm); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to write configuration"), "path", target)
	}
	return target, nil
}
