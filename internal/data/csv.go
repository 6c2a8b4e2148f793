package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"energy-ml/internal/features"
	"energy-ml/internal/model"
)

// CSVFraud reads a labelled fraud dataset. The header must name the nine
// record fields and a "fraud" column holding 0/1 (or true/false).
type CSVFraud struct {
	Path string
}

func (s *CSVFraud) FraudDataset(ctx context.Context) (*FraudDataset, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fraud dataset: %w", err)
	}
	defer f.Close()
	return ReadFraudCSV(ctx, f)
}

// ReadFraudCSV parses a fraud dataset from r.
func ReadFraudCSV(ctx context.Context, r io.Reader) (*FraudDataset, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := indexHeader(header)
	for _, f := range append(model.RequiredFields(), FraudLabel) {
		if _, ok := cols[f]; !ok {
			return nil, fmt.Errorf("fraud dataset is missing column %s", f)
		}
	}

	ds := &FraudDataset{}
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec := model.Record{}
		for _, f := range model.NumericFields {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[cols[f]]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, f, err)
			}
			rec[f] = v
		}
		for _, f := range model.CategoricalFields {
			rec[f] = strings.TrimSpace(row[cols[f]])
		}
		label, err := parseLabel(row[cols[FraudLabel]])
		if err != nil {
			return nil, fmt.Errorf("line %d column %s: %w", line, FraudLabel, err)
		}
		ds.Records = append(ds.Records, rec)
		ds.Labels = append(ds.Labels, label)
	}
	return ds, nil
}

// WriteFraudCSV writes a dataset in the layout ReadFraudCSV accepts.
func WriteFraudCSV(path string, ds *FraudDataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := append(model.RequiredFields(), FraudLabel)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, rec := range ds.Records {
		row := make([]string, 0, len(header))
		for _, f := range model.NumericFields {
			v, err := rec.Float(f)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			row = append(row, fmtFloat(v))
		}
		for _, f := range model.CategoricalFields {
			v, err := rec.Category(f)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			row = append(row, v)
		}
		row = append(row, strconv.Itoa(ds.Labels[i]))
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// CSVEnergy reads the historical energy dataset: the first eight columns
// are the model features in features.EnergyColumns order, the ninth and
// tenth the solar and wind yield. The first line is a header.
type CSVEnergy struct {
	Path string
}

func (s *CSVEnergy) EnergyDataset(ctx context.Context) (*EnergyDataset, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open energy dataset: %w", err)
	}
	defer f.Close()
	return ReadEnergyCSV(ctx, f)
}

// ReadEnergyCSV parses an energy dataset from r.
func ReadEnergyCSV(ctx context.Context, r io.Reader) (*EnergyDataset, error) {
	width := len(features.EnergyColumns)
	cr := csv.NewReader(r)
	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	ds := &EnergyDataset{}
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) < width+2 {
			return nil, fmt.Errorf("line %d has %d columns, want at least %d", line, len(row), width+2)
		}
		vals := make([]float64, width+2)
		for j := range vals {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", line, j+1, err)
			}
			vals[j] = v
		}
		ds.X = append(ds.X, vals[:width])
		ds.Solar = append(ds.Solar, vals[width])
		ds.Wind = append(ds.Wind, vals[width+1])
	}
	if len(ds.X) == 0 {
		return nil, errors.New("energy dataset has no rows")
	}
	return ds, nil
}

func indexHeader(header []string) map[string]int {
	out := make(map[string]int, len(header))
	for i, h := range header {
		out[strings.TrimSpace(h)] = i
	}
	return out
}

func parseLabel(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return 1, nil
	case "0", "false", "no":
		return 0, nil
	}
	return 0, fmt.Errorf("cannot parse %q as a fraud label", s)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
