// Package features turns incident records into model input: temporal feature
// extraction, fixed-order feature matrices and percentile-thresholded risk
// labels.
package features

import (
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/geocrime/geocrime-cli/internal/model"
)

// DefaultRiskPercentile is the threshold above which a value is labeled high risk.
const DefaultRiskPercentile = 75.0

// Temporal holds the time-derived features for one instant.
type Temporal struct {
	Hour      int
	DayOfWeek int // 0 = Monday, matching the upstream dataset convention
	Month     int
}

// Extract derives temporal features from a timestamp.
func Extract(t time.Time) Temporal {
	// time.Weekday starts at Sunday; shift so Monday is 0.
	dow := (int(t.Weekday()) + 6) % 7
	return Temporal{Hour: t.Hour(), DayOfWeek: dow, Month: int(t.Month())}
}

// MonthCycle returns the cyclical sin/cos encoding of a month, capturing
// seasonality without a December-to-January discontinuity.
func MonthCycle(month int) (float64, float64) {
	angle := 2 * math.Pi * float64(month) / 12
	return math.Sin(angle), math.Cos(angle)
}

// Matrix assembles the classifier feature matrix from incidents in the fixed
// order [latitude, longitude, hour, day_of_week, month].
func Matrix(incidents []model.Incident) ([][]float64, error) {
	if len(incidents) == 0 {
		return nil, eris.Wrap(model.ErrValidation, "features: no incidents")
	}
	rows := make([][]float64, len(incidents))
	for i, in := range incidents {
		tf := Extract(in.Timestamp)
		rows[i] = []float64{
			in.Latitude,
			in.Longitude,
			float64(tf.Hour),
			float64(tf.DayOfWeek),
			float64(tf.Month),
		}
	}
	return rows, nil
}

// Coordinates extracts [lat, lon] clustering input from incidents.
func Coordinates(incidents []model.Incident) [][]float64 {
	pts := make([][]float64, len(incidents))
	for i, in := range incidents {
		pts[i] = []float64{in.Latitude, in.Longitude}
	}
	return pts
}

// WeightedCoordinates extracts [lat, lon, severity] input so severity acts as
// a density weight for centroid-based clustering.
func WeightedCoordinates(incidents []model.Incident) [][]float64 {
	pts := make([][]float64, len(incidents))
	for i, in := range incidents {
		pts[i] = []float64{in.Latitude, in.Longitude, float64(in.Severity)}
	}
	return pts
}

// SpatioTemporalCoordinates extracts [lat, lon, hours-since-epoch] input for
// spatio-temporal density clustering.
func SpatioTemporalCoordinates(incidents []model.Incident) [][]float64 {
	pts := make([][]float64, len(incidents))
	for i, in := range incidents {
		pts[i] = []float64{
			in.Latitude,
			in.Longitude,
			float64(in.Timestamp.Unix()) / 3600.0,
		}
	}
	return pts
}

// RiskLabels thresholds values at the given percentile: 1 (high risk) above
// the threshold, 0 otherwise.
func RiskLabels(values []float64, percentile float64) ([]int, error) {
	if len(values) == 0 {
		return nil, eris.Wrap(model.ErrValidation, "features: no values to label")
	}
	if percentile < 0 || percentile > 100 {
		return nil, eris.Wrapf(model.ErrConfiguration, "features: percentile must be in [0, 100], got %g", percentile)
	}

	threshold := Percentile(values, percentile)
	labels := make([]int, len(values))
	for i, v := range values {
		if v > threshold {
			labels[i] = 1
		}
	}
	return labels, nil
}

// Percentile returns the p-th percentile of values using linear
// interpolation between closest ranks.
func Percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// SeverityValues extracts the severity column as float64s, the default
// risk-determining value for labeling.
func SeverityValues(incidents []model.Incident) []float64 {
	out := make([]float64, len(incidents))
	for i, in := range incidents {
		out[i] = float64(in.Severity)
	}
	return out
}
