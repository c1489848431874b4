package cluster

import "math"

// dbscan runs density-based clustering over points of any fixed dimension.
// Two points are neighbors when their Euclidean distance is <= eps; a point
// with at least minSamples neighbors (itself included) is a core point.
// Clusters grow from core points in input order, so labels are deterministic
// for a fixed point order. Unreachable points get the Noise label.
func dbscan(points [][]float64, eps float64, minSamples int) []int {
	const unvisited = -2

	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}

	next := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}
		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minSamples {
			labels[i] = Noise
			continue
		}

		labels[i] = next
		expandCluster(points, labels, neighbors, next, eps, minSamples)
		next++
	}
	return labels
}

// expandCluster grows cluster label from a core point's neighborhood using a
// FIFO frontier, reassigning border points previously marked as noise.
func expandCluster(points [][]float64, labels []int, frontier []int, label int, eps float64, minSamples int) {
	const unvisited = -2

	for idx := 0; idx < len(frontier); idx++ {
		j := frontier[idx]
		if labels[j] == Noise {
			labels[j] = label // border point
			continue
		}
		if labels[j] != unvisited {
			continue
		}
		labels[j] = label

		neighbors := regionQuery(points, j, eps)
		if len(neighbors) >= minSamples {
			frontier = append(frontier, neighbors...)
		}
	}
}

// regionQuery returns the indices of all points within eps of points[i],
// including i itself, in index order.
func regionQuery(points [][]float64, i int, eps float64) []int {
	var out []int
	for j := range points {
		if euclidean(points[i], points[j]) <= eps {
			out = append(out, j)
		}
	}
	return out
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for d := range a {
		diff := a[d] - b[d]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
