// Package classifier implements the supervised risk classifier: a random
// forest of decision trees over the fixed feature order
// [latitude, longitude, hour, day_of_week, month]. Labels are binary:
// 1 = high risk, 0 = low risk. Training is full-batch and blocking; trees are
// fitted in parallel internally but Train returns only when the whole forest
// is ready.
package classifier

import (
	"math"
	"math/rand"
	"runtime"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/geocrime/geocrime-cli/internal/model"
)

// FeatureOrder is the fixed input column contract. Train and inference
// matrices must both follow it.
var FeatureOrder = []string{"latitude", "longitude", "hour", "day_of_week", "month"}

// Defaults for the forest.
const (
	DefaultTrees    = 100
	DefaultMaxDepth = 12
	DefaultMinLeaf  = 1
	DefaultSeed     = 42
)

// Config tunes the forest.
type Config struct {
	Trees    int
	MaxDepth int
	MinLeaf  int
	Seed     int64
}

// DefaultConfig returns the standard forest configuration.
func DefaultConfig() Config {
	return Config{Trees: DefaultTrees, MaxDepth: DefaultMaxDepth, MinLeaf: DefaultMinLeaf, Seed: DefaultSeed}
}

// Forest is a random forest binary classifier. Mutation happens only during
// Train; inference methods are read-only and safe for concurrent use after
// training completes.
type Forest struct {
	cfg      Config
	features int
	trees    []*treeNode
}

// New creates an untrained Forest, validating the configuration.
func New(cfg Config) (*Forest, error) {
	if cfg.Trees < 1 {
		return nil, eris.Wrapf(model.ErrConfiguration, "classifier: trees must be >= 1, got %d", cfg.Trees)
	}
	if cfg.MaxDepth < 1 {
		return nil, eris.Wrapf(model.ErrConfiguration, "classifier: max depth must be >= 1, got %d", cfg.MaxDepth)
	}
	if cfg.MinLeaf < 1 {
		return nil, eris.Wrapf(model.ErrConfiguration, "classifier: min leaf must be >= 1, got %d", cfg.MinLeaf)
	}
	return &Forest{cfg: cfg}, nil
}

// Trained reports whether the forest has been fitted.
func (f *Forest) Trained() bool { return len(f.trees) > 0 }

// Train fits the forest on the labeled matrix. Each tree gets a bootstrap
// resample and considers a random sqrt-sized feature subset at every split.
// Per-tree seeds are derived from the master seed before any goroutine
// starts, so results are reproducible regardless of scheduling.
func (f *Forest) Train(X [][]float64, y []int) error {
	if err := validateMatrix(X, len(FeatureOrder)); err != nil {
		return err
	}
	if len(y) != len(X) {
		return eris.Wrapf(model.ErrValidation, "classifier: %d rows but %d labels", len(X), len(y))
	}
	for i, label := range y {
		if label != 0 && label != 1 {
			return eris.Wrapf(model.ErrValidation, "classifier: label at row %d must be 0 or 1, got %d", i, label)
		}
	}

	f.features = len(FeatureOrder)

	master := rand.New(rand.NewSource(f.cfg.Seed))
	seeds := make([]int64, f.cfg.Trees)
	for t := range seeds {
		seeds[t] = master.Int63()
	}

	trees := make([]*treeNode, f.cfg.Trees)
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := 0; t < f.cfg.Trees; t++ {
		t := t
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seeds[t]))
			sampleX, sampleY := bootstrap(X, y, rng)
			trees[t] = growTree(sampleX, sampleY, 0, f.cfg, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "classifier: train forest")
	}
	f.trees = trees

	zap.L().Info("classifier: training complete",
		zap.Int("trees", f.cfg.Trees),
		zap.Int("rows", len(X)),
	)
	return nil
}

// Predict returns the majority-vote label for each row.
func (f *Forest) Predict(X [][]float64) ([]int, error) {
	probs, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(probs))
	for i, p := range probs {
		if p >= 0.5 {
			labels[i] = 1
		}
	}
	return labels, nil
}

// PredictProba returns, per row, the fraction of trees voting high risk.
// Values are in [0, 1]; the complementary class probability is 1 minus the
// returned value.
func (f *Forest) PredictProba(X [][]float64) ([]float64, error) {
	if !f.Trained() {
		return nil, eris.Wrap(model.ErrConfiguration, "classifier: predict before train")
	}
	if err := validateMatrix(X, f.features); err != nil {
		return nil, err
	}

	probs := make([]float64, len(X))
	for i, row := range X {
		votes := 0
		for _, t := range f.trees {
			votes += classify(t, row)
		}
		probs[i] = float64(votes) / float64(len(f.trees))
	}
	return probs, nil
}

func validateMatrix(X [][]float64, cols int) error {
	if len(X) == 0 {
		return eris.Wrap(model.ErrValidation, "classifier: empty feature matrix")
	}
	for i, row := range X {
		if len(row) != cols {
			return eris.Wrapf(model.ErrValidation, "classifier: row %d has %d features, expected %d", i, len(row), cols)
		}
	}
	return nil
}

// bootstrap draws len(X) rows with replacement.
func bootstrap(X [][]float64, y []int, rng *rand.Rand) ([][]float64, []int) {
	n := len(X)
	sampleX := make([][]float64, n)
	sampleY := make([]int, n)
	for i := 0; i < n; i++ {
		j := rng.Intn(n)
		sampleX[i] = X[j]
		sampleY[i] = y[j]
	}
	return sampleX, sampleY
}

// featureSubset returns sqrt(features) distinct column indices.
func featureSubset(features int, rng *rand.Rand) []int {
	k := int(math.Ceil(math.Sqrt(float64(features))))
	return rng.Perm(features)[:k]
}
