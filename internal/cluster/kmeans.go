package cluster

import (
	"math"
	"math/rand"
)

const maxKMeansIterations = 100

// kmeans partitions points into k clusters minimizing within-cluster squared
// distance to the cluster mean. A third column, when present, is treated as a
// per-point importance weight: heavier points pull centroids toward them.
// Initialization is kmeans++-style with the given number of restarts; the
// assignment with the lowest weighted inertia wins. Deterministic for a fixed
// seed.
func kmeans(points [][]float64, k, restarts int, seed int64) []int {
	if k > len(points) {
		k = len(points)
	}

	coords := make([][]float64, len(points))
	weights := make([]float64, len(points))
	for i, p := range points {
		coords[i] = p[:2]
		weights[i] = 1
		if len(p) == 3 && p[2] > 0 {
			weights[i] = p[2]
		}
	}

	rng := rand.New(rand.NewSource(seed))

	bestInertia := math.Inf(1)
	var bestLabels []int
	for r := 0; r < restarts; r++ {
		labels, inertia := kmeansOnce(coords, weights, k, rng)
		if inertia < bestInertia {
			bestInertia = inertia
			bestLabels = labels
		}
	}
	return bestLabels
}

// kmeansOnce runs a single seeded-init Lloyd iteration to convergence.
func kmeansOnce(coords [][]float64, weights []float64, k int, rng *rand.Rand) ([]int, float64) {
	centers := seedCenters(coords, weights, k, rng)
	labels := make([]int, len(coords))

	for iter := 0; iter < maxKMeansIterations; iter++ {
		changed := false
		for i, p := range coords {
			best := nearestCenter(p, centers)
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}

		recomputeCenters(coords, weights, labels, centers)
		reseedEmpty(coords, labels, centers)

		if !changed && iter > 0 {
			break
		}
	}

	inertia := 0.0
	for i, p := range coords {
		d := euclidean(p, centers[labels[i]])
		inertia += weights[i] * d * d
	}
	return labels, inertia
}

// seedCenters picks k initial centers kmeans++-style: the first uniformly by
// weight, the rest proportional to weighted squared distance from the nearest
// chosen center.
func seedCenters(coords [][]float64, weights []float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)

	first := weightedPick(weights, rng)
	centers = append(centers, clonePoint(coords[first]))

	dist2 := make([]float64, len(coords))
	for len(centers) < k {
		total := 0.0
		for i, p := range coords {
			d := euclidean(p, centers[nearestCenter(p, centers)])
			dist2[i] = weights[i] * d * d
			total += dist2[i]
		}
		if total == 0 {
			// All remaining points coincide with a center; pick in order.
			centers = append(centers, clonePoint(coords[len(centers)%len(coords)]))
			continue
		}
		centers = append(centers, clonePoint(coords[weightedPick(dist2, rng)]))
	}
	return centers
}

func weightedPick(weights []float64, rng *rand.Rand) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	target := rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if target < acc {
			return i
		}
	}
	return len(weights) - 1
}

func nearestCenter(p []float64, centers [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		if d := euclidean(p, center); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// recomputeCenters moves each center to the weighted mean of its members.
func recomputeCenters(coords [][]float64, weights []float64, labels []int, centers [][]float64) {
	dim := len(coords[0])
	sums := make([][]float64, len(centers))
	totals := make([]float64, len(centers))
	for c := range centers {
		sums[c] = make([]float64, dim)
	}
	for i, p := range coords {
		c := labels[i]
		for d := 0; d < dim; d++ {
			sums[c][d] += weights[i] * p[d]
		}
		totals[c] += weights[i]
	}
	for c := range centers {
		if totals[c] == 0 {
			continue // handled by reseedEmpty
		}
		for d := 0; d < dim; d++ {
			centers[c][d] = sums[c][d] / totals[c]
		}
	}
}

// reseedEmpty relocates any empty cluster to the member point farthest from
// its current center, keeping exactly k non-empty clusters whenever k does
// not exceed the number of distinct points.
func reseedEmpty(coords [][]float64, labels []int, centers [][]float64) {
	counts := make([]int, len(centers))
	for _, l := range labels {
		counts[l]++
	}
	for c, n := range counts {
		if n > 0 {
			continue
		}
		far, farDist := -1, -1.0
		for i, p := range coords {
			if counts[labels[i]] <= 1 {
				continue // don't empty another cluster
			}
			if d := euclidean(p, centers[labels[i]]); d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 {
			continue
		}
		counts[labels[far]]--
		labels[far] = c
		counts[c] = 1
		copy(centers[c], coords[far])
	}
}

func clonePoint(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}
