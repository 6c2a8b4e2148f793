package features

import (
	"errors"
	"fmt"
	"math"
)

// Scaler holds per-column standardization parameters learned at fit time.
type Scaler struct {
	Columns []string  `json:"columns"`
	Mean    []float64 `json:"mean"`
	Scale   []float64 `json:"scale"`
}

// FitScaler computes the mean and population standard deviation of each
// column. A column with zero variance gets scale 1 so it maps to 0.
func FitScaler(columns []string, rows [][]float64) (Scaler, error) {
	if len(rows) == 0 {
		return Scaler{}, errors.New("cannot fit scaler on zero rows")
	}
	n := len(columns)
	mean := make([]float64, n)
	for i, row := range rows {
		if len(row) != n {
			return Scaler{}, fmt.Errorf("row %d has %d values, want %d", i, len(row), n)
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(rows))
	}

	scale := make([]float64, n)
	for _, row := range rows {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		s := math.Sqrt(scale[j] / float64(len(rows)))
		if s == 0 {
			s = 1
		}
		scale[j] = s
	}

	return Scaler{
		Columns: append([]string(nil), columns...),
		Mean:    mean,
		Scale:   scale,
	}, nil
}

// Width is the number of columns the scaler expects.
func (s Scaler) Width() int { return len(s.Columns) }

// Validate checks the parameter slices are consistent.
func (s Scaler) Validate() error {
	if len(s.Columns) == 0 {
		return errors.New("scaler has no columns")
	}
	if len(s.Mean) != len(s.Columns) || len(s.Scale) != len(s.Columns) {
		return fmt.Errorf("scaler parameters do not match %d columns", len(s.Columns))
	}
	for j, sc := range s.Scale {
		if sc == 0 || math.IsNaN(sc) || math.IsInf(sc, 0) {
			return fmt.Errorf("scaler column %s has invalid scale %v", s.Columns[j], sc)
		}
	}
	return nil
}

// TransformRow standardizes one row into dst, which must have Width() room.
func (s Scaler) TransformRow(dst, row []float64) {
	for j, v := range row {
		dst[j] = (v - s.Mean[j]) / s.Scale[j]
	}
}

// Transform standardizes every row. Rows are not modified.
func (s Scaler) Transform(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != s.Width() {
			return nil, &SchemaError{Index: i, Reason: fmt.Sprintf("row has %d values, want %d", len(row), s.Width())}
		}
		out[i] = make([]float64, s.Width())
		s.TransformRow(out[i], row)
	}
	return out, nil
}
