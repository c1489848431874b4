package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocrime/geocrime-cli/internal/model"
)

func TestPostgres_SaveIncidents_UsesCopy(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"latitude", "longitude", "ts", "crime_type", "severity", "city"}
	mock.ExpectCopyFrom(pgx.Identifier{"incidents"}, cols).WillReturnResult(2)

	s := NewPostgresWithPool(mock)
	n, err := s.SaveIncidents(context.Background(), sampleIncidents()[:2])
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveIncidents_RejectsInvalid(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresWithPool(mock)
	bad := []model.Incident{{Latitude: 0, Longitude: 200, Severity: 2, Timestamp: time.Now()}}
	_, err = s.SaveIncidents(context.Background(), bad)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "no writes attempted")
}

func TestPostgres_ListIncidents(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ts := time.Date(2024, time.June, 1, 22, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"id", "latitude", "longitude", "ts", "crime_type", "severity", "city"}).
		AddRow(int64(1), 12.97, 77.59, ts, "theft", 3, "Bengaluru")
	mock.ExpectQuery(`SELECT id, latitude, longitude, ts, crime_type, severity, city FROM incidents`).
		WithArgs("Bengaluru").
		WillReturnRows(rows)

	s := NewPostgresWithPool(mock)
	got, err := s.ListIncidents(context.Background(), IncidentFilter{City: "Bengaluru"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "theft", got[0].CrimeType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveAssignments_Transactional(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO cluster_runs`).
		WithArgs(pgxmock.AnyArg(), "kmeans", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO cluster_labels`).
		WithArgs(pgxmock.AnyArg(), int64(7), 2).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	s := NewPostgresWithPool(mock)
	runID, err := s.SaveAssignments(context.Background(), "kmeans", []model.ClusterAssignment{{IncidentID: 7, Label: 2}})
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListAssignments_UnknownRunIsEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT incident_id, label FROM cluster_labels`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"incident_id", "label"}))

	s := NewPostgresWithPool(mock)
	got, err := s.ListAssignments(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
