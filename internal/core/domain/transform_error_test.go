package domain_test

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/basis/internal/core/domain"
)

func TestTransformError(t *testing.T) {
	err := domain.NewTransformError("sass", "src/sass/style.scss", "expected \"}\"").At(12, 4)

	assert.Equal(t, "sass: src/sass/style.scss:12:4: expected \"}\"", err.Error())
	assert.ErrorIs(t, err, domain.ErrTransformFailed)

	var te *domain.TransformError
	wrapped := errors.Join(errors.New("chain"), err)
	assert.True(t, errors.As(wrapped, &te))
	assert.Equal(t, 12, te.Line)
}

func TestTransformError_Wrapping(t *testing.T) {
	err := domain.NewTransformError("exec", "app.js", "command failed").Wrapping(fs.ErrNotExist)

	assert.Equal(t, "exec: app.js: command failed", err.Error())
	assert.ErrorIs(t, err, domain.ErrTransformFailed)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestTag_TaskNotFound(t *testing.T) {
	err := domain.Tag(domain.ErrTaskNotFound, "task", "nope")

	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	assert.Equal(t, domain.ErrTaskNotFound.Error(), err.Error())
}

func TestFileSystemError(t *testing.T) {
	t.Parallel()

	err := domain.FileSystemError(fs.ErrNotExist, "src/sass/style.scss")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFileSystem)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "file system error")

	assert.NoError(t, domain.FileSystemError(nil, "x"))
}

func TestCaused(t *testing.T) {
	cause := errors.New("yaml: line 1: did not find expected node content")
	err := domain.Caused(domain.ErrConfigParseFailed, cause)

	require.ErrorIs(t, err, domain.ErrConfigParseFailed)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to parse config file: yaml: line 1: did not find expected node content", err.Error())
	assert.NoError(t, domain.Caused(domain.ErrConfigParseFailed, nil))
}
