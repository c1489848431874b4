package ingest

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocrime/geocrime-cli/internal/model"
)

func TestSynthesize_Deterministic(t *testing.T) {
	a, err := Synthesize(200, 42)
	require.NoError(t, err)
	b, err := Synthesize(200, 42)
	require.NoError(t, err)
	assert.Equal(t, a, b, "same seed yields the same dataset")

	c, err := Synthesize(200, 7)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestSynthesize_ValidRecords(t *testing.T) {
	incidents, err := Synthesize(500, 42)
	require.NoError(t, err)
	require.Len(t, incidents, 500)

	cities := map[string]bool{}
	for _, in := range incidents {
		require.NoError(t, in.Validate())
		assert.NotEmpty(t, in.CrimeType)
		assert.Equal(t, 2023, in.Timestamp.Year())
		cities[in.City] = true
	}
	assert.Greater(t, len(cities), 1, "incidents span multiple cities")
}

func TestSynthesize_RejectsNonPositiveCount(t *testing.T) {
	_, err := Synthesize(0, 42)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
}
