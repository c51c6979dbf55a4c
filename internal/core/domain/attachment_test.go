package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go.trai.ch/basis/internal/core/domain"
)

func TestUploadMimes(t *testing.T) {
	mimes := domain.UploadMimes(map[string]string{"webp": "image/webp", "svg": "text/plain"})

	assert.Equal(t, "image/svg+xml", mimes["svg"])
	assert.Equal(t, "image/webp", mimes["webp"])
	assert.Equal(t, "image/png", mimes["png"])
}

func TestStageKind_EmitsFiles(t *testing.T) {
	assert.True(t, domain.StageSass.EmitsFiles())
	assert.True(t, domain.StageSassDoc.EmitsFiles())
	assert.False(t, domain.StageSassLint.EmitsFiles())
	assert.False(t, domain.StageJSLint.EmitsFiles())
}

func TestMimeFor(t *testing.T) {
	mimes := domain.UploadMimes(nil)

	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"uploads/2024/01/logo.svg", "image/svg+xml", true},
		{"photo.JPEG", "image/jpeg", true},
		{"clip.m4v", "video/mp4", true},
		{"script.php", "", false},
		{"README", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := domain.MimeFor(mimes, tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
