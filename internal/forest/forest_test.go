package forest

import (
	"context"
	"encoding/json"
	"math/rand"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func separable(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		X[i] = []float64{rng.Float64(), rng.Float64(), rng.Float64()}
		if X[i][0] > 0.5 {
			y[i] = 1
		}
	}
	return X, y
}

func smallParams() Params {
	p := DefaultParams()
	p.NEstimators = 15
	p.MaxDepth = 6
	return p
}

func TestTrain_LearnsThreshold(t *testing.T) {
	X, y := separable(400, 1)
	p := smallParams()
	p.MaxFeatures = 3
	clf, err := Train(context.Background(), X, y, p)
	require.NoError(t, err)
	require.NoError(t, clf.Validate())

	hi, err := clf.PredictProba([]float64{0.9, 0.5, 0.5})
	require.NoError(t, err)
	lo, err := clf.PredictProba([]float64{0.1, 0.5, 0.5})
	require.NoError(t, err)

	assert.Greater(t, hi, 0.8)
	assert.Less(t, lo, 0.2)
}

func TestTrain_Deterministic(t *testing.T) {
	X, y := separable(200, 2)
	a, err := Train(context.Background(), X, y, smallParams())
	require.NoError(t, err)
	b, err := Train(context.Background(), X, y, smallParams())
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))
}

func TestPredictProba_InRangeAndWidthChecked(t *testing.T) {
	X, y := separable(100, 3)
	clf, err := Train(context.Background(), X, y, smallParams())
	require.NoError(t, err)

	for _, row := range X {
		p, err := clf.PredictProba(row)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}

	_, err = clf.PredictProba([]float64{1, 2})
	assert.Error(t, err)
}

func TestTrain_SingleClass(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}}
	y := []int{0, 0, 0}
	clf, err := Train(context.Background(), X, y, smallParams())
	require.NoError(t, err)
	p, err := clf.PredictProba([]float64{2})
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)
}

func TestTrain_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	_, err := Train(ctx, nil, nil, smallParams())
	assert.Error(t, err)

	_, err = Train(ctx, [][]float64{{1}, {2}}, []int{1}, smallParams())
	assert.Error(t, err)

	_, err = Train(ctx, [][]float64{{1}, {2, 3}}, []int{1, 0}, smallParams())
	assert.Error(t, err)

	_, err = Train(ctx, [][]float64{{1}, {2}}, []int{1, 2}, smallParams())
	assert.Error(t, err)

	p := smallParams()
	p.NEstimators = 0
	_, err = Train(ctx, [][]float64{{1}}, []int{1}, p)
	assert.Error(t, err)
}

func TestTrain_Cancelled(t *testing.T) {
	X, y := separable(50, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Train(ctx, X, y, smallParams())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidate_DetectsDamage(t *testing.T) {
	X, y := separable(100, 5)
	clf, err := Train(context.Background(), X, y, smallParams())
	require.NoError(t, err)

	bad := *clf
	bad.Trees = append([]Tree(nil), clf.Trees...)
	bad.Trees[0] = Tree{Nodes: []Node{{Feature: 9, Left: 1, Right: 2}, {Left: -1, Right: -1}, {Left: -1, Right: -1}}}
	assert.Error(t, bad.Validate())

	bad.Trees[0] = Tree{Nodes: []Node{{Left: 0, Right: 0}}}
	assert.Error(t, bad.Validate())

	bad.Trees = nil
	assert.Error(t, bad.Validate())
}

func depth(t Tree, i int) int {
	n := t.Nodes[i]
	if n.Left < 0 {
		return 0
	}
	return 1 + max(depth(t, n.Left), depth(t, n.Right))
}

func TestTrain_RespectsMaxDepth(t *testing.T) {
	X, y := separable(300, 6)
	for i := range y {
		// Noise forces deep trees when depth is unlimited.
		if i%7 == 0 {
			y[i] = 1 - y[i]
		}
	}
	p := smallParams()
	p.MaxDepth = 3
	clf, err := Train(context.Background(), X, y, p)
	require.NoError(t, err)
	for i, tree := range clf.Trees {
		assert.LessOrEqual(t, depth(tree, 0), 3, "tree %d", i)
	}

	p.MaxDepth = 0
	deep, err := Train(context.Background(), X, y, p)
	require.NoError(t, err)
	deepest := 0
	for _, tree := range deep.Trees {
		deepest = max(deepest, depth(tree, 0))
	}
	assert.Greater(t, deepest, 3)
}

func TestTrain_MinSamplesBlockSplits(t *testing.T) {
	X, y := separable(40, 7)

	p := smallParams()
	p.MinSamplesLeaf = 21
	clf, err := Train(context.Background(), X, y, p)
	require.NoError(t, err)
	for _, tree := range clf.Trees {
		assert.Len(t, tree.Nodes, 1)
	}

	p = smallParams()
	p.MinSamplesSplit = 41
	clf, err = Train(context.Background(), X, y, p)
	require.NoError(t, err)
	for _, tree := range clf.Trees {
		assert.Len(t, tree.Nodes, 1)
	}
}

func TestTrain_DeterministicAcrossParallelism(t *testing.T) {
	X, y := separable(200, 8)
	prev := runtime.GOMAXPROCS(1)
	serial, err := Train(context.Background(), X, y, smallParams())
	runtime.GOMAXPROCS(max(prev, 4))
	require.NoError(t, err)
	parallel, err := Train(context.Background(), X, y, smallParams())
	runtime.GOMAXPROCS(prev)
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)

	other := smallParams()
	other.Seed = 43
	reseeded, err := Train(context.Background(), X, y, other)
	require.NoError(t, err)
	assert.NotEqual(t, serial.Trees, reseeded.Trees)
}

func TestClassifier_JSONRoundTrip(t *testing.T) {
	X, y := separable(150, 9)
	clf, err := Train(context.Background(), X, y, smallParams())
	require.NoError(t, err)

	raw, err := json.Marshal(clf)
	require.NoError(t, err)
	var back Classifier
	require.NoError(t, json.Unmarshal(raw, &back))
	require.NoError(t, back.Validate())
	assert.Equal(t, clf.Params, back.Params)

	for _, row := range X {
		want, err := clf.PredictProba(row)
		require.NoError(t, err)
		got, err := back.PredictProba(row)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
