package store

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocrime/geocrime-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleIncidents() []model.Incident {
	base := time.Date(2024, time.June, 1, 22, 0, 0, 0, time.UTC)
	return []model.Incident{
		{Latitude: 12.97, Longitude: 77.59, Timestamp: base, CrimeType: "theft", Severity: 3, City: "Bengaluru"},
		{Latitude: 12.9705, Longitude: 77.5905, Timestamp: base.Add(time.Hour), CrimeType: "assault", Severity: 4, City: "Bengaluru"},
		{Latitude: 28.70, Longitude: 77.10, Timestamp: base.Add(48 * time.Hour), CrimeType: "robbery", Severity: 5, City: "Delhi"},
	}
}

func TestSQLite_SaveAndListIncidents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.SaveIncidents(ctx, sampleIncidents())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := s.ListIncidents(ctx, IncidentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.NotZero(t, all[0].ID)
	assert.Equal(t, "theft", all[0].CrimeType, "ordered by timestamp")

	count, err := s.CountIncidents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSQLite_ListIncidents_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveIncidents(ctx, sampleIncidents())
	require.NoError(t, err)

	byCity, err := s.ListIncidents(ctx, IncidentFilter{City: "Delhi"})
	require.NoError(t, err)
	require.Len(t, byCity, 1)
	assert.Equal(t, "robbery", byCity[0].CrimeType)

	since := time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC)
	recent, err := s.ListIncidents(ctx, IncidentFilter{Since: since})
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	limited, err := s.ListIncidents(ctx, IncidentFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLite_SaveIncidents_RejectsInvalid(t *testing.T) {
	s := newTestStore(t)

	bad := []model.Incident{{Latitude: 91, Longitude: 0, Severity: 3, Timestamp: time.Now()}}
	_, err := s.SaveIncidents(context.Background(), bad)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))

	count, err := s.CountIncidents(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count, "nothing persisted on validation failure")
}

func TestSQLite_Assignments_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assignments := []model.ClusterAssignment{
		{IncidentID: 1, Label: 0},
		{IncidentID: 2, Label: 0},
		{IncidentID: 3, Label: model.NoiseLabel},
	}
	runID, err := s.SaveAssignments(ctx, "dbscan", assignments)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	got, err := s.ListAssignments(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, assignments, got)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, "dbscan", runs[0].Algorithm)
}

func TestSQLite_ListAssignments_UnknownRunIsEmpty(t *testing.T) {
	s := newTestStore(t)

	got, err := s.ListAssignments(context.Background(), "no-such-run")
	require.NoError(t, err)
	assert.Empty(t, got)
}
