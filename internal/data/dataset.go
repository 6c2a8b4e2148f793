package data

import (
	"context"
	"fmt"

	"energy-ml/internal/model"
)

// FraudLabel is the label column of a fraud training set.
const FraudLabel = "fraud"

// FraudDataset is a labelled set of transaction records.
type FraudDataset struct {
	Records []model.Record
	Labels  []int // 1 = fraud
}

// Validate checks the dataset can be trained on.
func (d *FraudDataset) Validate() error {
	if len(d.Records) == 0 {
		return fmt.Errorf("fraud dataset is empty")
	}
	if len(d.Records) != len(d.Labels) {
		return fmt.Errorf("fraud dataset has %d records but %d labels", len(d.Records), len(d.Labels))
	}
	for i, r := range d.Records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("fraud dataset row %d: %w", i, err)
		}
	}
	return nil
}

// EnergyDataset is historical weather features with per-m² yields.
// X columns follow features.EnergyColumns.
type EnergyDataset struct {
	X     [][]float64
	Solar []float64
	Wind  []float64
}

// FraudSource supplies the fraud training set.
type FraudSource interface {
	FraudDataset(ctx context.Context) (*FraudDataset, error)
}

// EnergySource supplies the energy training set.
type EnergySource interface {
	EnergyDataset(ctx context.Context) (*EnergyDataset, error)
}
