package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveEnvironment(t *testing.T) {
	env := resolveEnvironment(
		[]string{"PATH=/usr/bin", "HOME=/home/dev", "BROKEN"},
		[]string{"HOME=/tmp", "BASIS_FILE=a.scss"},
	)

	assert.Equal(t, []string{"BASIS_FILE=a.scss", "HOME=/tmp", "PATH=/usr/bin"}, env)
}

func TestLookPath_NoPath(t *testing.T) {
	_, err := lookPath("sh", []string{"HOME=/tmp"})
	assert.Error(t, err)
}
