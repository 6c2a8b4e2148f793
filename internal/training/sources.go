package training

import (
	"energy-ml/internal/config"
	"energy-ml/internal/data"
)

// FraudSource picks the fraud training data named by cfg.
func FraudSource(cfg config.FraudConfig) data.FraudSource {
	if cfg.Source == config.SourceCSV {
		return &data.CSVFraud{Path: cfg.Path}
	}
	return &data.SyntheticFraud{Samples: cfg.Samples, Seed: cfg.Seed, FraudRate: cfg.FraudRate}
}

// EnergySource picks the energy training data named by cfg.
func EnergySource(cfg config.EnergyConfig) data.EnergySource {
	if cfg.Source == config.SourceCSV {
		return &data.CSVEnergy{Path: cfg.Path}
	}
	return &data.SyntheticEnergy{Samples: cfg.Samples, Seed: cfg.Seed}
}
