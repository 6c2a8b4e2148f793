// Package features turns raw records into the fixed-width numeric vectors
// the models are trained on.
//
// Column layout is fixed at fit time: numeric columns in schema order, then
// every categorical column's one-hot group in schema order with levels
// sorted. An unseen level encodes as all zeros for its group, so the width
// of an encoded row never depends on the request.
package features

import (
	"errors"
	"fmt"
	"sort"

	"energy-ml/internal/model"
)

// Schema names the raw columns an encoder consumes.
type Schema struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
}

// FraudSchema is the layout of energy transaction records.
func FraudSchema() Schema {
	return Schema{
		Numeric:     append([]string(nil), model.NumericFields...),
		Categorical: append([]string(nil), model.CategoricalFields...),
	}
}

// CategoryGroup is the closed vocabulary of one categorical column.
type CategoryGroup struct {
	Column string   `json:"column"`
	Levels []string `json:"levels"`
}

func (g CategoryGroup) index(level string) int {
	i := sort.SearchStrings(g.Levels, level)
	if i < len(g.Levels) && g.Levels[i] == level {
		return i
	}
	return -1
}

// EncoderState is everything needed to encode records the way the
// training set was encoded. Treat it as immutable once fitted.
type EncoderState struct {
	Numeric     Scaler          `json:"numeric"`
	Categorical []CategoryGroup `json:"categorical"`
}

// Fit learns scaling parameters and categorical vocabularies from records.
func Fit(schema Schema, records []model.Record) (*EncoderState, error) {
	if len(records) == 0 {
		return nil, errors.New("cannot fit encoder on zero records")
	}

	numeric := make([][]float64, len(records))
	levels := make([]map[string]struct{}, len(schema.Categorical))
	for g := range levels {
		levels[g] = map[string]struct{}{}
	}

	for i, r := range records {
		row, err := numericRow(schema.Numeric, r, i)
		if err != nil {
			return nil, err
		}
		numeric[i] = row
		for g, col := range schema.Categorical {
			lvl, err := r.Category(col)
			if err != nil {
				return nil, &SchemaError{Index: i, Column: col, Reason: err.Error()}
			}
			levels[g][lvl] = struct{}{}
		}
	}

	scaler, err := FitScaler(schema.Numeric, numeric)
	if err != nil {
		return nil, err
	}

	groups := make([]CategoryGroup, len(schema.Categorical))
	for g, col := range schema.Categorical {
		lv := make([]string, 0, len(levels[g]))
		for l := range levels[g] {
			lv = append(lv, l)
		}
		sort.Strings(lv)
		groups[g] = CategoryGroup{Column: col, Levels: lv}
	}

	return &EncoderState{Numeric: scaler, Categorical: groups}, nil
}

// Width is the length of every encoded row.
func (s *EncoderState) Width() int {
	w := s.Numeric.Width()
	for _, g := range s.Categorical {
		w += len(g.Levels)
	}
	return w
}

// Columns names every encoded column in output order.
func (s *EncoderState) Columns() []string {
	out := make([]string, 0, s.Width())
	out = append(out, s.Numeric.Columns...)
	for _, g := range s.Categorical {
		for _, l := range g.Levels {
			out = append(out, g.Column+"="+l)
		}
	}
	return out
}

// Validate checks that a loaded state is usable.
func (s *EncoderState) Validate() error {
	if s == nil {
		return errors.New("encoder state is nil")
	}
	if err := s.Numeric.Validate(); err != nil {
		return err
	}
	for _, g := range s.Categorical {
		if g.Column == "" {
			return errors.New("categorical group without a column name")
		}
		if !sort.StringsAreSorted(g.Levels) {
			return fmt.Errorf("levels of %s are not sorted", g.Column)
		}
	}
	return nil
}

// Encode turns records into a feature matrix, one row per record.
func (s *EncoderState) Encode(records []model.Record) ([][]float64, error) {
	out := make([][]float64, len(records))
	for i, r := range records {
		row, err := s.encodeRow(r, i)
		if err != nil {
			return nil, err
		}
		out[i] = row
	}
	return out, nil
}

// EncodeOne encodes a single record.
func (s *EncoderState) EncodeOne(r model.Record) ([]float64, error) {
	return s.encodeRow(r, -1)
}

func (s *EncoderState) encodeRow(r model.Record, idx int) ([]float64, error) {
	raw, err := numericRow(s.Numeric.Columns, r, idx)
	if err != nil {
		return nil, err
	}
	row := make([]float64, s.Width())
	s.Numeric.TransformRow(row, raw)

	off := s.Numeric.Width()
	for _, g := range s.Categorical {
		lvl, err := r.Category(g.Column)
		if err != nil {
			return nil, &SchemaError{Index: idx, Column: g.Column, Reason: err.Error()}
		}
		if k := g.index(lvl); k >= 0 {
			row[off+k] = 1
		}
		off += len(g.Levels)
	}
	return row, nil
}

func numericRow(columns []string, r model.Record, idx int) ([]float64, error) {
	row := make([]float64, len(columns))
	for j, col := range columns {
		v, ok := r[col]
		if !ok {
			return nil, &SchemaError{Index: idx, Column: col, Reason: "missing column"}
		}
		f, ok := model.ToFloat(v)
		if !ok {
			return nil, &SchemaError{Index: idx, Column: col, Reason: fmt.Sprintf("cannot parse %v as a number", v)}
		}
		row[j] = f
	}
	return row, nil
}
