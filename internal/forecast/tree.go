package forecast

import "sort"

// regressionTree is a binary tree fitted by least squares.
type regressionTree struct {
	root *treeNode
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

type treeParams struct {
	maxDepth       int
	minSamplesLeaf int
}

// fitTree grows a tree on the samples idx of x against y, splitting only on features.
func fitTree(x [][]float64, y []float64, idx []int, features []int, p treeParams) *regressionTree {
	return &regressionTree{root: grow(x, y, idx, features, p, 0)}
}

func (t *regressionTree) predict(row []float64) float64 {
	n := t.root
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func grow(x [][]float64, y []float64, idx []int, features []int, p treeParams, depth int) *treeNode {
	var sum float64
	for _, i := range idx {
		sum += y[i]
	}
	node := &treeNode{leaf: true, value: sum / float64(len(idx))}
	if depth >= p.maxDepth || len(idx) < 2*p.minSamplesLeaf {
		return node
	}

	s, ok := bestSplit(x, y, idx, features, p.minSamplesLeaf)
	if !ok {
		return node
	}
	var left, right []int
	for _, i := range idx {
		if x[i][s.feature] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	node.leaf = false
	node.feature = s.feature
	node.threshold = s.threshold
	node.left = grow(x, y, left, features, p, depth+1)
	node.right = grow(x, y, right, features, p, depth+1)
	return node
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

// bestSplit scans every boundary between distinct feature values and keeps the one
// with the largest reduction of the squared error.
func bestSplit(x [][]float64, y []float64, idx []int, features []int, minLeaf int) (split, bool) {
	n := len(idx)
	var total float64
	for _, i := range idx {
		total += y[i]
	}
	parentScore := total * total / float64(n)

	best := split{}
	found := false
	sorted := make([]int, n)
	for _, f := range features {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool { return x[sorted[a]][f] < x[sorted[b]][f] })

		var leftSum float64
		for k := 0; k < n-1; k++ {
			leftSum += y[sorted[k]]
			leftN := k + 1
			rightN := n - leftN
			lo, hi := x[sorted[k]][f], x[sorted[k+1]][f]
			if lo == hi || leftN < minLeaf || rightN < minLeaf {
				continue
			}
			rightSum := total - leftSum
			gain := leftSum*leftSum/float64(leftN) + rightSum*rightSum/float64(rightN) - parentScore
			if gain > best.gain+1e-12 {
				best = split{feature: f, threshold: (lo + hi) / 2, gain: gain}
				found = true
			}
		}
	}
	return best, found
}
