package regress

import (
	"errors"
	"fmt"
	"math/rand"
)

// EnergyModel predicts per-square-meter solar and wind yield.
type EnergyModel struct {
	Solar Linear `json:"solar"`
	Wind  Linear `json:"wind"`

	// Hold-out R² from the train/test split used at fit time.
	SolarTestR2 float64 `json:"solar_test_r2"`
	WindTestR2  float64 `json:"wind_test_r2"`
}

// FitEnergy fits both targets on a shuffled train split and scores them on
// the remaining testFraction of rows.
func FitEnergy(columns []string, X [][]float64, solar, wind []float64, testFraction float64, seed int64) (*EnergyModel, error) {
	n := len(X)
	if n != len(solar) || n != len(wind) {
		return nil, fmt.Errorf("got %d samples, %d solar and %d wind targets", n, len(solar), len(wind))
	}
	if testFraction < 0 || testFraction >= 1 {
		return nil, errors.New("test fraction must be in [0, 1)")
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(float64(n) * testFraction)
	trainIdx, testIdx := perm[nTest:], perm[:nTest]

	pick := func(idx []int) ([][]float64, []float64, []float64) {
		xs := make([][]float64, len(idx))
		s := make([]float64, len(idx))
		w := make([]float64, len(idx))
		for k, i := range idx {
			xs[k], s[k], w[k] = X[i], solar[i], wind[i]
		}
		return xs, s, w
	}

	xTrain, sTrain, wTrain := pick(trainIdx)
	sm, err := Fit("solar", columns, xTrain, sTrain)
	if err != nil {
		return nil, err
	}
	wm, err := Fit("wind", columns, xTrain, wTrain)
	if err != nil {
		return nil, err
	}

	m := &EnergyModel{Solar: *sm, Wind: *wm}
	if nTest > 0 {
		xTest, sTest, wTest := pick(testIdx)
		if m.SolarTestR2, err = sm.Score(xTest, sTest); err != nil {
			return nil, err
		}
		if m.WindTestR2, err = wm.Score(xTest, wTest); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Width is the number of features the model expects.
func (m *EnergyModel) Width() int { return len(m.Solar.Weights) }

// Predict returns raw (unclamped) solar and wind yield for one row.
func (m *EnergyModel) Predict(x []float64) (solar, wind float64, err error) {
	if solar, err = m.Solar.Predict(x); err != nil {
		return 0, 0, err
	}
	if wind, err = m.Wind.Predict(x); err != nil {
		return 0, 0, err
	}
	return solar, wind, nil
}

// Validate checks a decoded model.
func (m *EnergyModel) Validate() error {
	if m == nil {
		return errors.New("energy model is nil")
	}
	if len(m.Solar.Weights) == 0 || len(m.Solar.Weights) != len(m.Wind.Weights) {
		return fmt.Errorf("energy model widths differ: solar %d, wind %d", len(m.Solar.Weights), len(m.Wind.Weights))
	}
	return nil
}
