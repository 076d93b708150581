package scoring

import (
	"fmt"
	"math"
	"sort"
)

// node is one node of a binary decision tree stored in a flat slice.
// Leaves carry the positive-class share of the samples that reached them.
type node struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Prob      float64 `json:"p,omitempty"`
	Feature   int     `json:"f,omitempty"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

// predict walks from the root: x[f] <= threshold goes left
func (t tree) predict(x []float64) float64 {
	i := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Prob
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return 0
}

// validate checks that a decoded tree is walkable
func (t tree) validate(numFeatures int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			if math.IsNaN(n.Prob) || n.Prob < 0 || n.Prob > 1 {
				return fmt.Errorf("node %d has invalid probability %v", i, n.Prob)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= numFeatures {
			return fmt.Errorf("node %d splits on unknown feature %d", i, n.Feature)
		}
		// Children are always appended after their parent
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children", i)
		}
	}
	return nil
}

// treeGrower grows CART trees on the Gini impurity
type treeGrower struct {
	X        [][]float64
	y        []int
	maxDepth int
	minLeaf  int
}

func (g treeGrower) grow(sample []int) tree {
	t := tree{}
	g.split(&t, sample, 0)
	return t
}

// split appends the node for the given sample and returns its index
func (g treeGrower) split(t *tree, sample []int, depth int) int {
	idx := len(t.Nodes)
	pos := positives(g.y, sample)
	t.Nodes = append(t.Nodes, node{Leaf: true, Prob: float64(pos) / float64(len(sample))})

	if depth >= g.maxDepth || pos == 0 || pos == len(sample) || len(sample) < 2*g.minLeaf {
		return idx
	}

	feature, threshold, ok := g.bestSplit(sample)
	if !ok {
		return idx
	}

	var left, right []int
	for _, i := range sample {
		if g.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := g.split(t, left, depth+1)
	r := g.split(t, right, depth+1)
	t.Nodes[idx] = node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return idx
}

// bestSplit scans every feature and every midpoint between distinct sorted
// values for the lowest weighted Gini impurity. The first best split wins ties.
func (g treeGrower) bestSplit(sample []int) (int, float64, bool) {
	n := len(sample)
	bestFeature, bestThreshold := -1, 0.0
	bestImpurity := gini(positives(g.y, sample), n)

	sorted := make([]int, n)
	for f := range g.X[sample[0]] {
		copy(sorted, sample)
		sort.SliceStable(sorted, func(a, b int) bool {
			return g.X[sorted[a]][f] < g.X[sorted[b]][f]
		})

		totalPos := positives(g.y, sorted)
		leftPos := 0
		for k := 0; k < n-1; k++ {
			leftPos += g.y[sorted[k]]
			leftN := k + 1
			cur, next := g.X[sorted[k]][f], g.X[sorted[k+1]][f]
			if cur == next || leftN < g.minLeaf || n-leftN < g.minLeaf {
				continue
			}
			rightN := n - leftN
			impurity := (float64(leftN)*gini(leftPos, leftN) + float64(rightN)*gini(totalPos-leftPos, rightN)) / float64(n)
			if impurity < bestImpurity-1e-12 {
				bestImpurity = impurity
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 1 - p*p - (1-p)*(1-p)
}

func positives(y []int, sample []int) int {
	pos := 0
	for _, i := range sample {
		pos += y[i]
	}
	return pos
}
