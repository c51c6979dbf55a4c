package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/basis/internal/core/domain"
)

func TestInternedString(t *testing.T) {
	a := domain.NewInternedString("clean:styles")
	b := domain.NewInternedString("clean:styles")

	assert.Equal(t, a.Value(), b.Value())
	assert.Equal(t, "clean:styles", a.String())
	assert.False(t, a.IsZero())

	var zero domain.InternedString
	assert.True(t, zero.IsZero())
	assert.Empty(t, zero.String())
}

func TestInternedString_JSON(t *testing.T) {
	type watchRule struct {
		Files domain.InternedString   `json:"files"`
		Tasks []domain.InternedString `json:"tasks"`
	}

	original := watchRule{
		Files: domain.NewInternedString("sass"),
		Tasks: domain.NewInternedStrings([]string{"styles", "sass:lint"}),
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.JSONEq(t, `{"files":"sass","tasks":["styles","sass:lint"]}`, string(data))

	var decoded watchRule
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestNewInternedStrings(t *testing.T) {
	t.Run("keeps order and interns duplicates", func(t *testing.T) {
		names := domain.NewInternedStrings([]string{"styles", "scripts", "styles"})

		require.Len(t, names, 3)
		assert.Equal(t, []string{"styles", "scripts", "styles"}, domain.Names(names))
		assert.Equal(t, names[0].Value(), names[2].Value())
	})

	t.Run("no names gives nil", func(t *testing.T) {
		assert.Nil(t, domain.NewInternedStrings(nil))
		assert.Nil(t, domain.NewInternedStrings([]string{}))
	})

	t.Run("names of nil is empty", func(t *testing.T) {
		assert.Empty(t, domain.Names(nil))
	})
}
