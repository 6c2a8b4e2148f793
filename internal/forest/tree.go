package forest

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// Node is one tree node. Leaves have Left == Right == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"` // fraction of positive samples reaching the node
}

// Tree is a flattened binary decision tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func (t *Tree) validate(width int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Value < 0 || n.Value > 1 {
			return fmt.Errorf("node %d value %v out of [0,1]", i, n.Value)
		}
		if (n.Left < 0) != (n.Right < 0) {
			return fmt.Errorf("node %d has one child", i)
		}
		if n.Left < 0 {
			continue
		}
		// Children are always appended after their parent.
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children", i)
		}
		if n.Feature < 0 || n.Feature >= width {
			return fmt.Errorf("node %d splits on feature %d", i, n.Feature)
		}
	}
	return nil
}

type builder struct {
	X    [][]float64
	y    []int
	p    Params
	mtry int
	rng  *rand.Rand

	nodes []Node
}

func (b *builder) grow() Tree {
	n := len(b.X)
	sample := make([]int, n)
	for i := range sample {
		sample[i] = b.rng.Intn(n)
	}
	b.nodes = make([]Node, 0, 64)
	b.split(sample, 0)
	return Tree{Nodes: b.nodes}
}

func (b *builder) split(idx []int, depth int) int {
	pos := 0
	for _, i := range idx {
		pos += b.y[i]
	}
	n := len(idx)
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1, Value: float64(pos) / float64(n)})

	if pos == 0 || pos == n {
		return id
	}
	if b.p.MaxDepth > 0 && depth >= b.p.MaxDepth {
		return id
	}
	if n < b.p.MinSamplesSplit || n < 2*b.p.MinSamplesLeaf {
		return id
	}

	feat, thr, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	left := make([]int, 0, n)
	right := make([]int, 0, n)
	for _, i := range idx {
		if b.X[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.split(left, depth+1)
	r := b.split(right, depth+1)
	b.nodes[id].Feature = feat
	b.nodes[id].Threshold = thr
	b.nodes[id].Left = l
	b.nodes[id].Right = r
	return id
}

// bestSplit searches mtry random features for the lowest weighted Gini
// impurity. Like most CART implementations it keeps drawing features past
// mtry when none of the drawn ones is splittable.
func (b *builder) bestSplit(idx []int) (int, float64, bool) {
	width := len(b.X[0])
	perm := b.rng.Perm(width)

	sorted := make([]int, len(idx))
	bestFeat, bestThr := -1, 0.0
	bestScore := 0.0
	tried := 0

	for _, f := range perm {
		if tried >= b.mtry && bestFeat >= 0 {
			break
		}
		tried++

		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })

		total := len(sorted)
		totalPos := 0
		for _, i := range sorted {
			totalPos += b.y[i]
		}

		leftPos := 0
		for k := 0; k < total-1; k++ {
			leftPos += b.y[sorted[k]]
			lo, hi := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			leftN := k + 1
			rightN := total - leftN
			if leftN < b.p.MinSamplesLeaf || rightN < b.p.MinSamplesLeaf {
				continue
			}
			score := weightedGini(leftPos, leftN) + weightedGini(totalPos-leftPos, rightN)
			if bestFeat < 0 || score < bestScore {
				thr := lo + (hi-lo)/2
				if thr >= hi {
					thr = lo
				}
				bestFeat, bestThr, bestScore = f, thr, score
			}
		}
	}
	return bestFeat, bestThr, bestFeat >= 0
}

// weightedGini is n * gini(pos/n).
func weightedGini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos)
	q := float64(n - pos)
	return float64(n) - (p*p+q*q)/float64(n)
}
