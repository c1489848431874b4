// Package riskindex computes a bounded real-time risk score for a location
// and time, combining temporal heuristics with optional hotspot proximity and
// an explicit jitter term. Scores are explainable: every rule that fires is
// recorded in order.
package riskindex

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/geocrime/geocrime-cli/internal/cluster"
	"github.com/geocrime/geocrime-cli/internal/model"
)

// Scoring constants. The jitter term is deliberate: production scores include
// a bounded random perturbation so results are not trivially cacheable.
// Callers needing reproducibility inject a fixed rand source.
const (
	baseScore     = 10
	lateNightAdd  = 25
	eveningAdd    = 10
	jitterBound   = 10
	maxScore      = 100
	hotspotMaxAdd = 30

	// hotspotRadius is the proximity cutoff in coordinate degrees
	// (0.02 degrees is roughly 2.2 km).
	hotspotRadius = 0.02
)

// Contributing factor messages.
const (
	factorLateNight = "High risk: late night hours"
	factorEvening   = "Moderate risk: evening hours"
	factorHotspot   = "High risk: near known crime hotspot"
)

// HotspotSource supplies fitted hotspot centroids for the proximity term.
// A fitted *cluster.Model satisfies this interface.
type HotspotSource interface {
	Centroids() []cluster.Centroid
}

// Engine calculates risk index scores. Construct once and share; a mutex
// guards the jitter source so Calculate is safe for concurrent use.
type Engine struct {
	hotspots HotspotSource

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures the Engine.
type Option func(*Engine)

// WithHotspots wires a hotspot source into the proximity term. Absent a
// source the term contributes zero.
func WithHotspots(src HotspotSource) Option {
	return func(e *Engine) { e.hotspots = src }
}

// WithRandSource replaces the jitter random source, making runs reproducible.
func WithRandSource(src rand.Source) Option {
	return func(e *Engine) { e.rng = rand.New(src) }
}

// New creates an Engine. By default the jitter source is time-seeded.
func New(opts ...Option) *Engine {
	e := &Engine{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Calculate scores the given location at the given time. A zero time means
// now. The result is always in [0, 100]; the cap is a documented saturation,
// not an error.
func (e *Engine) Calculate(lat, lon float64, at time.Time) model.RiskIndexResult {
	if at.IsZero() {
		at = time.Now()
	}

	score := float64(baseScore)
	var factors []string

	// Temporal adjustment.
	hour := at.Hour()
	switch {
	case hour >= 22 || hour <= 4:
		score += lateNightAdd
		factors = append(factors, factorLateNight)
	case hour >= 18:
		score += eveningAdd
		factors = append(factors, factorEvening)
	}

	// Hotspot proximity: closer to a fitted centroid means a larger addition,
	// zero beyond the radius or without a source.
	if add := e.hotspotBoost(lat, lon); add > 0 {
		score += add
		factors = append(factors, factorHotspot)
	}

	// Bounded jitter, then cap.
	e.mu.Lock()
	jitter := e.rng.Float64() * jitterBound
	e.mu.Unlock()
	score += jitter
	if score > maxScore {
		score = maxScore
	}

	// Round before deriving the level so the reported score and level always
	// agree at the thresholds.
	score = math.Round(score*100) / 100
	result := model.RiskIndexResult{
		Score:               score,
		Level:               model.LevelForScore(score),
		ContributingFactors: factors,
		Timestamp:           at,
	}

	zap.L().Debug("riskindex: calculated",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
		zap.Float64("score", result.Score),
		zap.String("level", result.Level),
	)
	return result
}

// hotspotBoost returns up to hotspotMaxAdd points with linear falloff to the
// nearest centroid within hotspotRadius.
func (e *Engine) hotspotBoost(lat, lon float64) float64 {
	if e.hotspots == nil {
		return 0
	}

	nearest := math.Inf(1)
	for _, c := range e.hotspots.Centroids() {
		d := math.Hypot(lat-c.Latitude, lon-c.Longitude)
		if d < nearest {
			nearest = d
		}
	}
	if nearest > hotspotRadius {
		return 0
	}
	return hotspotMaxAdd * (1 - nearest/hotspotRadius)
}
