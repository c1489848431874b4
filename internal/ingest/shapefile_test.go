package ingest

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocrime/geocrime-cli/internal/model"
)

func writePointShapefile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "points.shp")

	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("TYPE", 25),
		shp.StringField("SEV", 5),
		shp.StringField("DATE", 25),
		shp.StringField("CITY", 25),
	}))

	rows := []struct {
		lon, lat             float64
		typ, sev, date, city string
	}{
		{77.5946, 12.9716, "Theft", "3", "2023-06-01", "Bangalore"},
		{77.1025, 28.7041, "Assault", "4", "2023-06-02", "Delhi"},
		{77.60, 12.98, "Theft", "bad", "2023-06-03", "Bangalore"},
	}
	for i, r := range rows {
		w.Write(&shp.Point{X: r.lon, Y: r.lat})
		require.NoError(t, w.WriteAttribute(i, 0, r.typ))
		require.NoError(t, w.WriteAttribute(i, 1, r.sev))
		require.NoError(t, w.WriteAttribute(i, 2, r.date))
		require.NoError(t, w.WriteAttribute(i, 3, r.city))
	}
	w.Close()
	return path
}

func TestLoadShapefile_Points(t *testing.T) {
	path := writePointShapefile(t)

	incidents, err := LoadShapefile(path, ShapefileOptions{
		TypeField:     "TYPE",
		SeverityField: "SEV",
		DateField:     "DATE",
		CityField:     "CITY",
	})
	require.NoError(t, err)
	require.Len(t, incidents, 2, "record with unparseable severity is skipped")

	assert.InDelta(t, 12.9716, incidents[0].Latitude, 1e-6)
	assert.InDelta(t, 77.5946, incidents[0].Longitude, 1e-6)
	assert.Equal(t, "Theft", incidents[0].CrimeType)
	assert.Equal(t, 3, incidents[0].Severity)
	assert.Equal(t, "Delhi", incidents[1].City)
}

func TestLoadShapefile_Defaults(t *testing.T) {
	path := writePointShapefile(t)

	incidents, err := LoadShapefile(path, ShapefileOptions{
		DefaultType: "Unknown",
		DefaultCity: "Bangalore",
	})
	require.NoError(t, err)
	require.Len(t, incidents, 3, "attributes ignored when fields are unmapped")
	assert.Equal(t, "Unknown", incidents[0].CrimeType)
	assert.Equal(t, model.MinSeverity, incidents[0].Severity)
}

func TestLoadShapefile_MissingFile(t *testing.T) {
	_, err := LoadShapefile(filepath.Join(t.TempDir(), "nope.shp"), ShapefileOptions{})
	require.Error(t, err)
}
