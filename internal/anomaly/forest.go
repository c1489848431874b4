// Package anomaly implements batch outlier detection over incident feature
// vectors using an isolation forest. The detector is ephemeral by design:
// callers re-fit on every batch, and the contamination rate bounds how many
// points may be flagged anomalous.
package anomaly

import (
	"math"
	"math/rand"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geocrime/geocrime-cli/internal/model"
)

// Labels returned by FitPredict.
const (
	LabelNormal    = 1
	LabelAnomalous = -1
)

// Defaults follow the common isolation forest setup.
const (
	DefaultContamination = 0.05
	DefaultTrees         = 100
	DefaultSampleSize    = 256
	DefaultSeed          = 42
)

// Config tunes the detector.
type Config struct {
	// Contamination is the expected fraction of outliers in a batch, in (0, 0.5].
	Contamination float64
	// Trees is the ensemble size.
	Trees int
	// SampleSize is the per-tree subsample size, capped at the batch size.
	SampleSize int
	// Seed fixes the random source for reproducible runs.
	Seed int64
}

// DefaultConfig returns the standard detector configuration.
func DefaultConfig() Config {
	return Config{
		Contamination: DefaultContamination,
		Trees:         DefaultTrees,
		SampleSize:    DefaultSampleSize,
		Seed:          DefaultSeed,
	}
}

// Detector is an isolation forest outlier estimator.
type Detector struct {
	cfg   Config
	trees []*node
	// sampleSize actually used during the last fit, needed for score normalization.
	fitSample int
}

// New creates a Detector, validating the configuration.
func New(cfg Config) (*Detector, error) {
	if cfg.Contamination <= 0 || cfg.Contamination > 0.5 {
		return nil, eris.Wrapf(model.ErrConfiguration, "anomaly: contamination must be in (0, 0.5], got %g", cfg.Contamination)
	}
	if cfg.Trees < 1 {
		return nil, eris.Wrapf(model.ErrConfiguration, "anomaly: trees must be >= 1, got %d", cfg.Trees)
	}
	if cfg.SampleSize < 2 {
		return nil, eris.Wrapf(model.ErrConfiguration, "anomaly: sample size must be >= 2, got %d", cfg.SampleSize)
	}
	return &Detector{cfg: cfg}, nil
}

// FitPredict fits the forest on the batch and labels each row: 1 for normal,
// -1 for anomalous. At most contamination*len(rows) rows are labeled
// anomalous, chosen as those with the lowest scores.
func (d *Detector) FitPredict(rows [][]float64) ([]int, error) {
	scores, err := d.fitScore(rows)
	if err != nil {
		return nil, err
	}

	labels := make([]int, len(rows))
	for i := range labels {
		labels[i] = LabelNormal
	}

	k := int(d.cfg.Contamination * float64(len(rows)))
	if k > 0 {
		order := make([]int, len(scores))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })
		for _, idx := range order[:k] {
			labels[idx] = LabelAnomalous
		}
	}

	zap.L().Info("anomaly: batch scored",
		zap.Int("rows", len(rows)),
		zap.Int("anomalies", k),
	)
	return labels, nil
}

// Scores fits the forest on the batch and returns one decision score per row.
// Lower scores mean more anomalous.
func (d *Detector) Scores(rows [][]float64) ([]float64, error) {
	return d.fitScore(rows)
}

func (d *Detector) fitScore(rows [][]float64) ([]float64, error) {
	if len(rows) == 0 {
		return nil, eris.Wrap(model.ErrValidation, "anomaly: empty input")
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, eris.Wrap(model.ErrValidation, "anomaly: rows have no columns")
	}
	for i, r := range rows {
		if len(r) != cols {
			return nil, eris.Wrapf(model.ErrValidation, "anomaly: row %d has %d columns, expected %d", i, len(r), cols)
		}
	}

	d.fit(rows)

	scores := make([]float64, len(rows))
	for i, r := range rows {
		scores[i] = d.decision(r)
	}
	return scores, nil
}

// fit builds the ensemble on subsamples of the batch.
func (d *Detector) fit(rows [][]float64) {
	rng := rand.New(rand.NewSource(d.cfg.Seed))

	sample := d.cfg.SampleSize
	if sample > len(rows) {
		sample = len(rows)
	}
	d.fitSample = sample
	maxDepth := int(math.Ceil(math.Log2(float64(sample))))

	d.trees = make([]*node, d.cfg.Trees)
	for t := range d.trees {
		idx := rng.Perm(len(rows))[:sample]
		sub := make([][]float64, sample)
		for i, j := range idx {
			sub[i] = rows[j]
		}
		d.trees[t] = buildTree(sub, 0, maxDepth, rng)
	}
}

// decision returns 0.5 minus the standard isolation forest anomaly score, so
// values sit around 0 with lower meaning more anomalous (sklearn convention).
func (d *Detector) decision(row []float64) float64 {
	total := 0.0
	for _, t := range d.trees {
		total += pathLength(t, row, 0)
	}
	mean := total / float64(len(d.trees))
	score := math.Pow(2, -mean/avgPathLength(d.fitSample))
	return 0.5 - score
}

// node is one isolation tree node. Leaves have a zero Left/Right and carry
// the size of the data slice they isolate.
type node struct {
	SplitCol int     `json:"col"`
	SplitVal float64 `json:"val"`
	Left     *node   `json:"left,omitempty"`
	Right    *node   `json:"right,omitempty"`
	Size     int     `json:"size"`
}

func buildTree(rows [][]float64, depth, maxDepth int, rng *rand.Rand) *node {
	if len(rows) <= 1 || depth >= maxDepth {
		return &node{Size: len(rows)}
	}

	col := rng.Intn(len(rows[0]))
	lo, hi := columnRange(rows, col)
	if lo == hi {
		return &node{Size: len(rows)}
	}
	split := lo + rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, r := range rows {
		if r[col] < split {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	return &node{
		SplitCol: col,
		SplitVal: split,
		Left:     buildTree(left, depth+1, maxDepth, rng),
		Right:    buildTree(right, depth+1, maxDepth, rng),
		Size:     len(rows),
	}
}

func columnRange(rows [][]float64, col int) (float64, float64) {
	lo, hi := rows[0][col], rows[0][col]
	for _, r := range rows[1:] {
		if r[col] < lo {
			lo = r[col]
		}
		if r[col] > hi {
			hi = r[col]
		}
	}
	return lo, hi
}

func pathLength(n *node, row []float64, depth int) float64 {
	if n.Left == nil && n.Right == nil {
		return float64(depth) + avgPathLength(n.Size)
	}
	if row[n.SplitCol] < n.SplitVal {
		return pathLength(n.Left, row, depth+1)
	}
	return pathLength(n.Right, row, depth+1)
}

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search over n points, used to normalize isolation depths.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+0.5772156649) - 2*(fn-1)/fn
}
