// Package regress fits ordinary least squares models with
// github.com/sajari/regression and keeps only the coefficients, so a
// fitted model is plain data that can be persisted and shared.
package regress

import (
	"errors"
	"fmt"

	"github.com/sajari/regression"
)

// Linear is y = Intercept + Σ Weights[i]*x[i].
type Linear struct {
	Target    string    `json:"target"`
	Intercept float64   `json:"intercept"`
	Weights   []float64 `json:"weights"`
	R2        float64   `json:"r2"`
}

// Fit runs OLS of y on X. columns names the variables of X in order.
func Fit(target string, columns []string, X [][]float64, y []float64) (*Linear, error) {
	if len(X) != len(y) {
		return nil, fmt.Errorf("got %d samples but %d targets", len(X), len(y))
	}
	if len(X) <= len(columns) {
		return nil, fmt.Errorf("need more than %d samples to fit %d variables, got %d", len(columns), len(columns), len(X))
	}

	r := new(regression.Regression)
	r.SetObserved(target)
	for i, c := range columns {
		r.SetVar(i, c)
	}
	for i, row := range X {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("sample %d has %d values, want %d", i, len(row), len(columns))
		}
		r.Train(regression.DataPoint(y[i], row))
	}
	if err := r.Run(); err != nil {
		return nil, fmt.Errorf("fit %s: %w", target, err)
	}

	coeffs := r.GetCoeffs()
	if len(coeffs) != len(columns)+1 {
		return nil, fmt.Errorf("fit %s: got %d coefficients, want %d", target, len(coeffs), len(columns)+1)
	}
	return &Linear{
		Target:    target,
		Intercept: coeffs[0],
		Weights:   append([]float64(nil), coeffs[1:]...),
		R2:        r.R2,
	}, nil
}

// Predict evaluates the model on one row.
func (l *Linear) Predict(x []float64) (float64, error) {
	if len(x) != len(l.Weights) {
		return 0, fmt.Errorf("%s: row has %d values, model expects %d", l.Target, len(x), len(l.Weights))
	}
	out := l.Intercept
	for i, w := range l.Weights {
		out += w * x[i]
	}
	return out, nil
}

// Score returns the coefficient of determination on held-out data.
func (l *Linear) Score(X [][]float64, y []float64) (float64, error) {
	if len(X) == 0 || len(X) != len(y) {
		return 0, errors.New("score needs matching, non-empty samples")
	}
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	var ssRes, ssTot float64
	for i, row := range X {
		p, err := l.Predict(row)
		if err != nil {
			return 0, err
		}
		ssRes += (y[i] - p) * (y[i] - p)
		ssTot += (y[i] - mean) * (y[i] - mean)
	}
	if ssTot == 0 {
		return 0, nil
	}
	return 1 - ssRes/ssTot, nil
}
