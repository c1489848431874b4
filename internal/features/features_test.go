package features

import (
	"math"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocrime/geocrime-cli/internal/model"
)

func TestExtract_Temporal(t *testing.T) {
	// 2024-03-15 is a Friday.
	tf := Extract(time.Date(2024, time.March, 15, 23, 5, 0, 0, time.UTC))
	assert.Equal(t, 23, tf.Hour)
	assert.Equal(t, 4, tf.DayOfWeek, "Friday is 4 with Monday as 0")
	assert.Equal(t, 3, tf.Month)

	// Sunday wraps to 6.
	tf = Extract(time.Date(2024, time.March, 17, 1, 0, 0, 0, time.UTC))
	assert.Equal(t, 6, tf.DayOfWeek)
}

func TestMonthCycle_NoSeam(t *testing.T) {
	s12, c12 := MonthCycle(12)
	s0, c0 := MonthCycle(0)
	assert.InDelta(t, s0, s12, 1e-9, "December and month 0 coincide on the cycle")
	assert.InDelta(t, c0, c12, 1e-9)

	s3, c3 := MonthCycle(3)
	assert.InDelta(t, 1.0, math.Hypot(s3, c3), 1e-9, "encoding stays on the unit circle")
}

func TestMatrix_FixedOrder(t *testing.T) {
	incidents := []model.Incident{
		{Latitude: 28.70, Longitude: 77.10, Timestamp: time.Date(2024, time.January, 1, 22, 0, 0, 0, time.UTC), Severity: 3},
	}
	rows, err := Matrix(incidents)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// 2024-01-01 is a Monday.
	assert.Equal(t, []float64{28.70, 77.10, 22, 0, 1}, rows[0])
}

func TestMatrix_Empty(t *testing.T) {
	_, err := Matrix(nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestCoordinates_Shapes(t *testing.T) {
	incidents := []model.Incident{
		{Latitude: 12.97, Longitude: 77.59, Severity: 4, Timestamp: time.Unix(7200, 0)},
	}

	assert.Equal(t, [][]float64{{12.97, 77.59}}, Coordinates(incidents))
	assert.Equal(t, [][]float64{{12.97, 77.59, 4}}, WeightedCoordinates(incidents))
	assert.Equal(t, [][]float64{{12.97, 77.59, 2}}, SpatioTemporalCoordinates(incidents))
}

func TestRiskLabels_PercentileThreshold(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	labels, err := RiskLabels(values, 75)
	require.NoError(t, err)

	// 75th percentile of 1..10 is 7.75; values above it are high risk.
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0, 0, 1, 1, 1}, labels)
}

func TestRiskLabels_Validation(t *testing.T) {
	_, err := RiskLabels(nil, 75)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))

	_, err = RiskLabels([]float64{1}, 120)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrConfiguration))
}

func TestPercentile_Interpolation(t *testing.T) {
	values := []float64{10, 20, 30, 40}
	assert.InDelta(t, 10.0, Percentile(values, 0), 1e-9)
	assert.InDelta(t, 40.0, Percentile(values, 100), 1e-9)
	assert.InDelta(t, 25.0, Percentile(values, 50), 1e-9)
	assert.InDelta(t, 5.0, Percentile([]float64{5}, 90), 1e-9)
}
