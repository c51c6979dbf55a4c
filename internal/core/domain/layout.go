package domain

import "path/filepath"

const (
	// BasisDirName is the name of the internal state directory at the project root.
	BasisDirName = ".basis"

	// StoreDirName is the name of the build info store directory.
	StoreDirName = "store"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "basis.yaml"

	// MediaDBFile is the default name of the attachment database.
	MediaDBFile = "media.db"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// DefaultTarget is the task run when no task is named.
	DefaultTarget = "default"
)

// DefaultStorePath returns the default path for the build info store.
// It joins .basis and store.
func DefaultStorePath() string {
	return filepath.Join(BasisDirName, StoreDirName)
}

// DefaultMediaDBPath returns the default path of the attachment database.
func DefaultMediaDBPath() string {
	return filepath.Join(BasisDirName, MediaDBFile)
}
