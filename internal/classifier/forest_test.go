package classifier

import (
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocrime/geocrime-cli/internal/model"
)

// trainingSet builds a separable dataset: late-night incidents in the north
// are high risk, daytime incidents in the south are low risk.
func trainingSet() ([][]float64, []int) {
	var X [][]float64
	var y []int
	for i := 0; i < 20; i++ {
		X = append(X, []float64{28.70 + float64(i)*0.01, 77.10, 23, float64(i % 7), 1})
		y = append(y, 1)
		X = append(X, []float64{19.07 + float64(i)*0.01, 72.87, 14, float64(i % 7), 6})
		y = append(y, 0)
	}
	return X, y
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Trees = 20
	return cfg
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Trees: 0, MaxDepth: 5, MinLeaf: 1})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrConfiguration))
}

func TestTrain_Validation(t *testing.T) {
	f, err := New(smallConfig())
	require.NoError(t, err)

	err = f.Train(nil, nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))

	// Wrong column count.
	err = f.Train([][]float64{{28.7, 77.1}}, []int{1})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))

	// Label/row mismatch.
	err = f.Train([][]float64{{28.7, 77.1, 23, 2, 1}}, []int{1, 0})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))

	// Non-binary label.
	err = f.Train([][]float64{{28.7, 77.1, 23, 2, 1}}, []int{3})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestPredict_BeforeTrain(t *testing.T) {
	f, err := New(smallConfig())
	require.NoError(t, err)

	_, err = f.Predict([][]float64{{28.7, 77.1, 23, 2, 1}})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrConfiguration))
}

func TestTrainPredict_SeparableData(t *testing.T) {
	X, y := trainingSet()
	f, err := New(smallConfig())
	require.NoError(t, err)
	require.NoError(t, f.Train(X, y))

	pred, err := f.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, y, pred, "separable training data is reproduced")
}

func TestPredictProba_Bounds(t *testing.T) {
	X, y := trainingSet()
	f, err := New(smallConfig())
	require.NoError(t, err)
	require.NoError(t, f.Train(X, y))

	probs, err := f.PredictProba(X)
	require.NoError(t, err)

	pred, err := f.Predict(X)
	require.NoError(t, err)

	for i, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		// Predict is the argmax of the vote fractions.
		if p >= 0.5 {
			assert.Equal(t, 1, pred[i])
		} else {
			assert.Equal(t, 0, pred[i])
		}
	}
}

func TestTrain_DeterministicForSeed(t *testing.T) {
	X, y := trainingSet()
	probe := [][]float64{
		{28.71, 77.11, 22, 5, 2},
		{19.08, 72.88, 11, 1, 7},
	}

	run := func() []float64 {
		f, err := New(smallConfig())
		require.NoError(t, err)
		require.NoError(t, f.Train(X, y))
		probs, err := f.PredictProba(probe)
		require.NoError(t, err)
		return probs
	}

	assert.Equal(t, run(), run())
}

func TestPredict_ColumnMismatch(t *testing.T) {
	X, y := trainingSet()
	f, err := New(smallConfig())
	require.NoError(t, err)
	require.NoError(t, f.Train(X, y))

	_, err = f.Predict([][]float64{{28.7, 77.1, 23}})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestEvaluate_PerfectClassifier(t *testing.T) {
	X, y := trainingSet()
	f, err := New(smallConfig())
	require.NoError(t, err)
	require.NoError(t, f.Train(X, y))

	ev, err := f.Evaluate(X, y)
	require.NoError(t, err)

	assert.Equal(t, 1.0, ev.Accuracy)
	assert.Equal(t, 1.0, ev.HighRisk.Precision)
	assert.Equal(t, 1.0, ev.HighRisk.Recall)
	assert.Equal(t, 1.0, ev.HighRisk.F1)
	assert.Equal(t, 20, ev.HighRisk.Support)
	assert.Equal(t, 20, ev.LowRisk.Support)
	assert.Equal(t, 20, ev.ConfusionMatrix[1][1])
	assert.Equal(t, 20, ev.ConfusionMatrix[0][0])
	assert.Equal(t, 0, ev.ConfusionMatrix[0][1])
	assert.Equal(t, 0, ev.ConfusionMatrix[1][0])
}

func TestEvaluate_RejectsNonBinaryLabels(t *testing.T) {
	X, y := trainingSet()
	f, err := New(smallConfig())
	require.NoError(t, err)
	require.NoError(t, f.Train(X, y))

	_, err = f.Evaluate(X[:1], []int{2})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))

	_, err = f.Evaluate(X[:1], []int{-1})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestSaveLoad_PredictionsSurvive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk_model.json")

	X := [][]float64{
		{28.70, 77.10, 22, 2, 1},
		{19.07, 72.87, 14, 3, 6},
	}
	y := []int{1, 0}

	// Full-size forest: with only two training rows a small ensemble could
	// draw too many single-class bootstraps for a stable majority.
	f, err := New(DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, f.Train(X, y))

	want, err := f.Predict(X)
	require.NoError(t, err)
	require.NoError(t, f.Save(path))

	restored, err := Load(path)
	require.NoError(t, err)
	got, err := restored.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSave_BeforeTrain(t *testing.T) {
	f, err := New(smallConfig())
	require.NoError(t, err)

	err = f.Save(filepath.Join(t.TempDir(), "m.json"))
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrConfiguration))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrPersistence))
}
