// Package forest implements a random-forest binary classifier: bootstrap
// sampled CART trees split on Gini impurity with a random feature subset
// per split. Probabilities are the mean of the trees' leaf frequencies.
package forest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Params are the forest hyperparameters.
type Params struct {
	NEstimators     int   `json:"n_estimators" yaml:"n_estimators"`
	MaxDepth        int   `json:"max_depth" yaml:"max_depth"` // 0 = unlimited
	MinSamplesSplit int   `json:"min_samples_split" yaml:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf" yaml:"min_samples_leaf"`
	MaxFeatures     int   `json:"max_features" yaml:"max_features"` // 0 = sqrt(width)
	Seed            int64 `json:"seed" yaml:"seed"`
}

// DefaultParams mirrors the hyperparameters the service has always reported.
func DefaultParams() Params {
	return Params{
		NEstimators:     200,
		MaxDepth:        20,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            42,
	}
}

func (p Params) Validate() error {
	if p.NEstimators <= 0 {
		return errors.New("n_estimators must be > 0")
	}
	if p.MaxDepth < 0 {
		return errors.New("max_depth must be >= 0")
	}
	if p.MinSamplesSplit < 2 {
		return errors.New("min_samples_split must be >= 2")
	}
	if p.MinSamplesLeaf < 1 {
		return errors.New("min_samples_leaf must be >= 1")
	}
	if p.MaxFeatures < 0 {
		return errors.New("max_features must be >= 0")
	}
	return nil
}

// Classifier is a trained forest. It is safe for concurrent use.
type Classifier struct {
	Params Params `json:"params"`
	Width  int    `json:"width"`
	Trees  []Tree `json:"trees"`
}

// Train fits a forest on X (one row per sample) and binary labels y.
// Trees are built in parallel; each tree draws from its own seeded source
// so the result does not depend on scheduling.
func Train(ctx context.Context, X [][]float64, y []int, p Params) (*Classifier, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(X) == 0 {
		return nil, errors.New("no training samples")
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("got %d samples but %d labels", len(X), len(y))
	}
	width := len(X[0])
	if width == 0 {
		return nil, errors.New("training samples have no features")
	}
	for i, row := range X {
		if len(row) != width {
			return nil, fmt.Errorf("sample %d has %d features, want %d", i, len(row), width)
		}
	}
	for i, l := range y {
		if l != 0 && l != 1 {
			return nil, fmt.Errorf("label %d is %d, want 0 or 1", i, l)
		}
	}

	mtry := p.MaxFeatures
	if mtry == 0 || mtry > width {
		mtry = int(math.Max(1, math.Floor(math.Sqrt(float64(width)))))
	}

	trees := make([]Tree, p.NEstimators)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := range trees {
		t := t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b := &builder{
				X:    X,
				y:    y,
				p:    p,
				mtry: mtry,
				rng:  rand.New(rand.NewSource(p.Seed + int64(t))),
			}
			trees[t] = b.grow()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Classifier{Params: p, Width: width, Trees: trees}, nil
}

// PredictProba returns P(label = 1) for one feature vector.
func (c *Classifier) PredictProba(x []float64) (float64, error) {
	if len(x) != c.Width {
		return 0, fmt.Errorf("feature vector has %d values, model expects %d", len(x), c.Width)
	}
	sum := 0.0
	for i := range c.Trees {
		sum += c.Trees[i].predict(x)
	}
	return sum / float64(len(c.Trees)), nil
}

// Validate checks a decoded forest for structural damage.
func (c *Classifier) Validate() error {
	if c == nil {
		return errors.New("classifier is nil")
	}
	if c.Width <= 0 {
		return errors.New("classifier width must be > 0")
	}
	if len(c.Trees) == 0 {
		return errors.New("classifier has no trees")
	}
	for i := range c.Trees {
		if err := c.Trees[i].validate(c.Width); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}
