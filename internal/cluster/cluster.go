// Package cluster implements the hotspot clustering engine. Three algorithms
// sit behind one model: density-based (dbscan), centroid-based (kmeans, with
// optional per-point weights) and spatio-temporal density (stdbscan). A model
// carries its algorithm tag, parameters and fitted state as one unit so a
// restored model always dispatches to the implementation it was built with.
package cluster

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geocrime/geocrime-cli/internal/model"
)

// Supported algorithm tags.
const (
	AlgorithmDBSCAN   = "dbscan"
	AlgorithmKMeans   = "kmeans"
	AlgorithmSTDBSCAN = "stdbscan"
)

// Noise is the label for points that belong to no cluster.
const Noise = model.NoiseLabel

// Default parameter values. EpsDegrees of 0.01 is roughly 1.1 km at the
// equator, matching the coordinate-degree unit of incident data.
const (
	DefaultEps        = 0.01
	DefaultMinSamples = 5
	DefaultRestarts   = 10
	DefaultSeed       = 42
)

// requiredParams maps each algorithm to the parameter keys it cannot run without.
var requiredParams = map[string][]string{
	AlgorithmDBSCAN:   {"eps", "min_samples"},
	AlgorithmKMeans:   {"n_clusters"},
	AlgorithmSTDBSCAN: {"eps_spatial", "eps_temporal", "min_samples"},
}

// columnCounts maps each algorithm to the point column counts it accepts.
var columnCounts = map[string][]int{
	AlgorithmDBSCAN:   {2},
	AlgorithmKMeans:   {2, 3}, // optional third weight column
	AlgorithmSTDBSCAN: {3},    // [lat, lon, time]
}

// Centroid is the mean position and size of one fitted cluster.
type Centroid struct {
	Label     int     `json:"label"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Size      int     `json:"size"`
	Weight    float64 `json:"weight"`
}

// Model is a configured clustering model. It is fitted transductively: every
// FitPredict call re-clusters the supplied points and replaces the fitted
// state. Models are not safe for concurrent FitPredict calls.
type Model struct {
	Algorithm string
	Params    map[string]float64

	centroids []Centroid
	fitted    bool
}

// New builds a Model for the given algorithm, merging the supplied parameters
// over defaults. Unknown algorithms and missing required keys fail with a
// configuration error.
func New(algorithm string, params map[string]float64) (*Model, error) {
	required, ok := requiredParams[algorithm]
	if !ok {
		return nil, eris.Wrapf(model.ErrConfiguration, "cluster: unknown algorithm %q", algorithm)
	}

	merged := defaultParams(algorithm)
	for k, v := range params {
		merged[k] = v
	}
	for _, key := range required {
		if _, ok := merged[key]; !ok {
			return nil, eris.Wrapf(model.ErrConfiguration, "cluster: %s requires parameter %q", algorithm, key)
		}
	}
	if err := validateParams(algorithm, merged); err != nil {
		return nil, err
	}

	return &Model{Algorithm: algorithm, Params: merged}, nil
}

// defaultParams returns the optional-parameter defaults for an algorithm.
func defaultParams(algorithm string) map[string]float64 {
	switch algorithm {
	case AlgorithmDBSCAN:
		return map[string]float64{"eps": DefaultEps, "min_samples": DefaultMinSamples}
	case AlgorithmKMeans:
		return map[string]float64{"restarts": DefaultRestarts, "seed": DefaultSeed}
	case AlgorithmSTDBSCAN:
		return map[string]float64{"min_samples": DefaultMinSamples}
	default:
		return map[string]float64{}
	}
}

func validateParams(algorithm string, p map[string]float64) error {
	check := func(key string, ok bool, format string, args ...any) error {
		if !ok {
			return eris.Wrapf(model.ErrConfiguration, "cluster: %s parameter %q %s", algorithm, key, fmt.Sprintf(format, args...))
		}
		return nil
	}

	switch algorithm {
	case AlgorithmDBSCAN:
		if err := check("eps", p["eps"] > 0, "must be > 0, got %g", p["eps"]); err != nil {
			return err
		}
		return check("min_samples", p["min_samples"] >= 1, "must be >= 1, got %g", p["min_samples"])
	case AlgorithmKMeans:
		if err := check("n_clusters", p["n_clusters"] >= 1, "must be >= 1, got %g", p["n_clusters"]); err != nil {
			return err
		}
		return check("restarts", p["restarts"] >= 1, "must be >= 1, got %g", p["restarts"])
	case AlgorithmSTDBSCAN:
		if err := check("eps_spatial", p["eps_spatial"] > 0, "must be > 0, got %g", p["eps_spatial"]); err != nil {
			return err
		}
		if err := check("eps_temporal", p["eps_temporal"] > 0, "must be > 0, got %g", p["eps_temporal"]); err != nil {
			return err
		}
		return check("min_samples", p["min_samples"] >= 1, "must be >= 1, got %g", p["min_samples"])
	}
	return nil
}

// FitPredict clusters the given points and returns one label per input row,
// in input order. Label -1 marks noise. The fitted state (cluster centroids)
// is replaced on every call.
func (m *Model) FitPredict(points [][]float64) ([]int, error) {
	if len(points) == 0 {
		return nil, eris.Wrap(model.ErrValidation, "cluster: empty input")
	}
	if err := m.checkColumns(points); err != nil {
		return nil, err
	}

	var labels []int
	switch m.Algorithm {
	case AlgorithmDBSCAN:
		labels = dbscan(points, m.Params["eps"], int(m.Params["min_samples"]))
	case AlgorithmKMeans:
		labels = kmeans(points, int(m.Params["n_clusters"]), int(m.Params["restarts"]), int64(m.Params["seed"]))
	case AlgorithmSTDBSCAN:
		scaled := rescaleTemporal(points, m.Params["eps_spatial"], m.Params["eps_temporal"])
		labels = dbscan(scaled, m.Params["eps_spatial"], int(m.Params["min_samples"]))
	default:
		return nil, eris.Wrapf(model.ErrConfiguration, "cluster: unknown algorithm %q", m.Algorithm)
	}

	weighted := m.Algorithm == AlgorithmKMeans && len(points[0]) == 3
	m.centroids = computeCentroids(points, labels, weighted)
	m.fitted = true

	zap.L().Info("cluster: fit complete",
		zap.String("algorithm", m.Algorithm),
		zap.Int("points", len(points)),
		zap.Int("clusters", len(m.centroids)),
		zap.Int("noise", countLabel(labels, Noise)),
	)
	return labels, nil
}

func (m *Model) checkColumns(points [][]float64) error {
	allowed := columnCounts[m.Algorithm]
	cols := len(points[0])
	valid := false
	for _, c := range allowed {
		if cols == c {
			valid = true
		}
	}
	if !valid {
		return eris.Wrapf(model.ErrValidation, "cluster: %s expects %v columns, got %d", m.Algorithm, allowed, cols)
	}
	for i, p := range points {
		if len(p) != cols {
			return eris.Wrapf(model.ErrValidation, "cluster: row %d has %d columns, expected %d", i, len(p), cols)
		}
	}
	return nil
}

// Fitted reports whether the model has clustered at least one batch.
func (m *Model) Fitted() bool { return m.fitted }

// Centroids returns the fitted cluster centroids ordered by label. Empty
// before the first FitPredict call.
func (m *Model) Centroids() []Centroid {
	out := make([]Centroid, len(m.centroids))
	copy(out, m.centroids)
	return out
}

// computeCentroids derives per-cluster mean position and total weight from
// labeled points. Noise points are excluded. When weighted is false the
// third column (if any) is ignored and every point counts as 1.
func computeCentroids(points [][]float64, labels []int, weighted bool) []Centroid {
	byLabel := make(map[int]*Centroid)
	for i, lbl := range labels {
		if lbl == Noise {
			continue
		}
		c, ok := byLabel[lbl]
		if !ok {
			c = &Centroid{Label: lbl}
			byLabel[lbl] = c
		}
		w := 1.0
		if weighted {
			w = points[i][2]
		}
		c.Latitude += points[i][0] * w
		c.Longitude += points[i][1] * w
		c.Weight += w
		c.Size++
	}

	out := make([]Centroid, 0, len(byLabel))
	for _, c := range byLabel {
		if c.Weight > 0 {
			c.Latitude /= c.Weight
			c.Longitude /= c.Weight
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// rescaleTemporal maps the third column so that a gap of epsTemporal becomes
// comparable to a spatial gap of epsSpatial, letting the single-radius dbscan
// core act spatio-temporally without a custom metric.
func rescaleTemporal(points [][]float64, epsSpatial, epsTemporal float64) [][]float64 {
	factor := epsSpatial / epsTemporal
	scaled := make([][]float64, len(points))
	for i, p := range points {
		scaled[i] = []float64{p[0], p[1], p[2] * factor}
	}
	return scaled
}

func countLabel(labels []int, target int) int {
	n := 0
	for _, l := range labels {
		if l == target {
			n++
		}
	}
	return n
}
