package classifier

import (
	"math"
	"math/rand"
	"sort"
)

// treeNode is one CART node. Leaves carry the majority label; internal nodes
// split on Col < Val.
type treeNode struct {
	Col   int       `json:"col"`
	Val   float64   `json:"val"`
	Left  *treeNode `json:"left,omitempty"`
	Right *treeNode `json:"right,omitempty"`
	Label int       `json:"label"`
	Leaf  bool      `json:"leaf,omitempty"`
}

// growTree builds a decision tree by recursive gini-impurity splits over a
// random feature subset per node.
func growTree(X [][]float64, y []int, depth int, cfg Config, rng *rand.Rand) *treeNode {
	if len(X) == 0 {
		return &treeNode{Leaf: true, Label: 0}
	}

	ones := 0
	for _, label := range y {
		ones += label
	}
	majority := 0
	if ones*2 >= len(y) {
		majority = 1
	}

	if depth >= cfg.MaxDepth || len(X) <= cfg.MinLeaf || ones == 0 || ones == len(y) {
		return &treeNode{Leaf: true, Label: majority}
	}

	col, val, ok := bestSplit(X, y, featureSubset(len(X[0]), rng))
	if !ok {
		return &treeNode{Leaf: true, Label: majority}
	}

	var leftX, rightX [][]float64
	var leftY, rightY []int
	for i, row := range X {
		if row[col] < val {
			leftX = append(leftX, row)
			leftY = append(leftY, y[i])
		} else {
			rightX = append(rightX, row)
			rightY = append(rightY, y[i])
		}
	}
	if len(leftX) == 0 || len(rightX) == 0 {
		return &treeNode{Leaf: true, Label: majority}
	}

	return &treeNode{
		Col:   col,
		Val:   val,
		Left:  growTree(leftX, leftY, depth+1, cfg, rng),
		Right: growTree(rightX, rightY, depth+1, cfg, rng),
		Label: majority,
	}
}

// bestSplit scans candidate columns for the threshold minimizing weighted
// gini impurity. Thresholds are midpoints between consecutive distinct
// values. Returns ok=false when no column separates the rows.
func bestSplit(X [][]float64, y []int, cols []int) (int, float64, bool) {
	bestGini := math.Inf(1)
	bestCol, bestVal := -1, 0.0

	for _, col := range cols {
		vals := make([]float64, len(X))
		for i, row := range X {
			vals[i] = row[col]
		}
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)

		for i := 1; i < len(sorted); i++ {
			if sorted[i] == sorted[i-1] {
				continue
			}
			threshold := (sorted[i] + sorted[i-1]) / 2

			leftN, leftOnes, rightN, rightOnes := 0, 0, 0, 0
			for j, v := range vals {
				if v < threshold {
					leftN++
					leftOnes += y[j]
				} else {
					rightN++
					rightOnes += y[j]
				}
			}
			g := weightedGini(leftN, leftOnes, rightN, rightOnes)
			if g < bestGini {
				bestGini = g
				bestCol, bestVal = col, threshold
			}
		}
	}

	return bestCol, bestVal, bestCol >= 0
}

func weightedGini(leftN, leftOnes, rightN, rightOnes int) float64 {
	total := float64(leftN + rightN)
	return float64(leftN)/total*gini(leftN, leftOnes) + float64(rightN)/total*gini(rightN, rightOnes)
}

func gini(n, ones int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(ones) / float64(n)
	return 2 * p * (1 - p)
}

// classify walks the tree and returns the leaf label for a row.
func classify(t *treeNode, row []float64) int {
	for !t.Leaf && t.Left != nil && t.Right != nil {
		if row[t.Col] < t.Val {
			t = t.Left
		} else {
			t = t.Right
		}
	}
	return t.Label
}
