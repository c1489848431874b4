package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocrime/geocrime-cli/internal/model"
)

func TestLoadCSV_HeaderAliases(t *testing.T) {
	data := `lat,lng,date,type,severity,city
12.9716,77.5946,2023-06-01 22:30:00,Theft,3,Bangalore
28.7041,77.1025,2023-06-02,Assault,4,Delhi
`
	incidents, err := LoadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, incidents, 2)

	assert.Equal(t, 12.9716, incidents[0].Latitude)
	assert.Equal(t, "Theft", incidents[0].CrimeType)
	assert.Equal(t, 22, incidents[0].Timestamp.Hour())
	assert.Equal(t, "Delhi", incidents[1].City)
	assert.Equal(t, time.Month(6), incidents[1].Timestamp.Month())
}

func TestLoadCSV_SkipsBadRows(t *testing.T) {
	data := `latitude,longitude,timestamp,severity
12.97,77.59,2023-06-01T10:00:00Z,3
not-a-number,77.59,2023-06-01T10:00:00Z,3
12.97,77.59,yesterday,3
95.0,77.59,2023-06-01T10:00:00Z,3
12.98,77.60,2023-06-02T11:00:00Z,2
`
	incidents, err := LoadCSV(strings.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, incidents, 2, "three malformed rows skipped")
}

func TestLoadCSV_MissingRequiredColumn(t *testing.T) {
	data := "latitude,timestamp\n12.97,2023-06-01\n"
	_, err := LoadCSV(strings.NewReader(data))
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
	assert.Contains(t, err.Error(), "longitude")
}

func TestLoadCSV_Empty(t *testing.T) {
	_, err := LoadCSV(strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestLoadCSV_AllRowsBad(t *testing.T) {
	data := "latitude,longitude,timestamp\nx,y,z\n"
	_, err := LoadCSV(strings.NewReader(data))
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestLoadCSV_DefaultSeverity(t *testing.T) {
	data := "latitude,longitude,timestamp\n12.97,77.59,2023-06-01\n"
	incidents, err := LoadCSV(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, model.MinSeverity, incidents[0].Severity)
}
