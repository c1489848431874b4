package anomaly

import (
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocrime/geocrime-cli/internal/model"
)

// clusteredBatch returns rows tightly packed around a center plus one far
// outlier at the end, shaped like [lat, lon, severity].
func clusteredBatch(n int) [][]float64 {
	rows := make([][]float64, 0, n+1)
	for i := 0; i < n; i++ {
		rows = append(rows, []float64{
			12.97 + float64(i%5)*0.0001,
			77.59 + float64(i%7)*0.0001,
			2,
		})
	}
	rows = append(rows, []float64{18.5, 84.2, 5})
	return rows
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Contamination: 0, Trees: 10, SampleSize: 16})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrConfiguration))

	_, err = New(Config{Contamination: 0.1, Trees: 0, SampleSize: 16})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrConfiguration))
}

func TestFitPredict_EmptyInput(t *testing.T) {
	d, err := New(DefaultConfig())
	require.NoError(t, err)

	_, err = d.FitPredict(nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestFitPredict_RaggedRows(t *testing.T) {
	d, err := New(DefaultConfig())
	require.NoError(t, err)

	_, err = d.FitPredict([][]float64{{1, 2, 3}, {1, 2}})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestFitPredict_FlagsOutlier(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Contamination = 0.05
	d, err := New(cfg)
	require.NoError(t, err)

	rows := clusteredBatch(39) // 40 rows total, 5% -> 2 anomalies max
	labels, err := d.FitPredict(rows)
	require.NoError(t, err)
	require.Len(t, labels, len(rows))

	assert.Equal(t, LabelAnomalous, labels[len(labels)-1], "the far point is flagged")

	anomalies := 0
	for _, l := range labels {
		if l == LabelAnomalous {
			anomalies++
		}
	}
	assert.LessOrEqual(t, anomalies, 2, "contamination bounds the anomaly count")
}

func TestScores_LowerIsMoreAnomalous(t *testing.T) {
	d, err := New(DefaultConfig())
	require.NoError(t, err)

	rows := clusteredBatch(30)
	scores, err := d.Scores(rows)
	require.NoError(t, err)
	require.Len(t, scores, len(rows))

	outlier := scores[len(scores)-1]
	for i := 0; i < len(scores)-1; i++ {
		assert.Less(t, outlier, scores[i], "outlier scores below every inlier")
	}
}

func TestFitPredict_DeterministicForSeed(t *testing.T) {
	rows := clusteredBatch(25)

	run := func() []int {
		d, err := New(DefaultConfig())
		require.NoError(t, err)
		labels, err := d.FitPredict(rows)
		require.NoError(t, err)
		return labels
	}

	assert.Equal(t, run(), run())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anomaly_model.json")

	d, err := New(DefaultConfig())
	require.NoError(t, err)
	rows := clusteredBatch(20)
	_, err = d.Scores(rows)
	require.NoError(t, err)
	require.NoError(t, d.Save(path))

	restored, err := Load(path)
	require.NoError(t, err)

	// A restored forest scores identically without re-fitting.
	want := make([]float64, len(rows))
	for i, r := range rows {
		want[i] = d.decision(r)
	}
	for i, r := range rows {
		assert.InDelta(t, want[i], restored.decision(r), 1e-12)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrPersistence))
}
