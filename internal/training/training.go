// Package training builds the fraud and energy model pairs and wires each
// family into a lifecycle manager backed by the artifact store.
package training

import (
	"context"
	"fmt"
	"log/slog"

	"energy-ml/internal/artifact"
	"energy-ml/internal/data"
	"energy-ml/internal/features"
	"energy-ml/internal/forest"
	"energy-ml/internal/lifecycle"
	"energy-ml/internal/regress"
)

// Model family names. They double as artifact file prefixes.
const (
	FraudFamily  = "fraud"
	EnergyFamily = "energy"
)

// Energy hold-out split.
const (
	EnergyTestFraction       = 0.2
	EnergySplitSeed    int64 = 42
)

type (
	FraudManager  = lifecycle.Manager[*forest.Classifier, *features.EncoderState]
	FraudPair     = lifecycle.Pair[*forest.Classifier, *features.EncoderState]
	EnergyManager = lifecycle.Manager[*regress.EnergyModel, *features.Scaler]
	EnergyPair    = lifecycle.Pair[*regress.EnergyModel, *features.Scaler]
)

// FraudTrainer fits the encoder on the source's records, then trains a
// forest on the encoded matrix.
func FraudTrainer(src data.FraudSource, params forest.Params, logger *slog.Logger) lifecycle.Trainer[*forest.Classifier, *features.EncoderState] {
	return func(ctx context.Context) (*forest.Classifier, *features.EncoderState, error) {
		ds, err := src.FraudDataset(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load fraud dataset: %w", err)
		}
		if err := ds.Validate(); err != nil {
			return nil, nil, err
		}

		enc, err := features.Fit(features.FraudSchema(), ds.Records)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fit encoder: %w", err)
		}
		X, err := enc.Encode(ds.Records)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode training set: %w", err)
		}
		clf, err := forest.Train(ctx, X, ds.Labels, params)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to train forest: %w", err)
		}

		if logger != nil {
			logger.Info("fraud model fitted",
				slog.Int("rows", len(X)),
				slog.Int("columns", enc.Width()),
				slog.Int("trees", len(clf.Trees)))
		}
		return clf, enc, nil
	}
}

// CheckFraud rejects a pair whose model was trained on a different
// encoded width than the encoder produces.
func CheckFraud(m *forest.Classifier, e *features.EncoderState) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if m.Width != e.Width() {
		return fmt.Errorf("model expects %d columns, encoder produces %d", m.Width, e.Width())
	}
	return nil
}

// EnergyTrainer standardizes the weather features and fits the solar and
// wind regressions on an 80/20 split. Hold-out R² is logged.
func EnergyTrainer(src data.EnergySource, logger *slog.Logger) lifecycle.Trainer[*regress.EnergyModel, *features.Scaler] {
	return func(ctx context.Context) (*regress.EnergyModel, *features.Scaler, error) {
		ds, err := src.EnergyDataset(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load energy dataset: %w", err)
		}

		scaler, err := features.FitScaler(features.EnergyColumns, ds.X)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fit scaler: %w", err)
		}
		X, err := scaler.Transform(ds.X)
		if err != nil {
			return nil, nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		m, err := regress.FitEnergy(features.EnergyColumns, X, ds.Solar, ds.Wind, EnergyTestFraction, EnergySplitSeed)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fit energy model: %w", err)
		}

		if logger != nil {
			logger.Info("energy model fitted",
				slog.Int("rows", len(X)),
				slog.Float64("solar_test_r2", m.SolarTestR2),
				slog.Float64("wind_test_r2", m.WindTestR2))
		}
		return m, &scaler, nil
	}
}

// CheckEnergy is the energy counterpart of CheckFraud.
func CheckEnergy(m *regress.EnergyModel, s *features.Scaler) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if m.Width() != s.Width() {
		return fmt.Errorf("model expects %d columns, scaler produces %d", m.Width(), s.Width())
	}
	return nil
}

// NewFraudManager persists fraud pairs under dir.
func NewFraudManager(dir string, src data.FraudSource, params forest.Params, logger *slog.Logger) *FraudManager {
	return lifecycle.New(lifecycle.Options[*forest.Classifier, *features.EncoderState]{
		Name:   FraudFamily,
		Store:  artifact.NewFileStore[*forest.Classifier, *features.EncoderState](dir, FraudFamily),
		Train:  FraudTrainer(src, params, logger),
		Check:  CheckFraud,
		Logger: logger,
	})
}

// NewEnergyManager persists energy pairs under dir.
func NewEnergyManager(dir string, src data.EnergySource, logger *slog.Logger) *EnergyManager {
	return lifecycle.New(lifecycle.Options[*regress.EnergyModel, *features.Scaler]{
		Name:   EnergyFamily,
		Store:  artifact.NewFileStore[*regress.EnergyModel, *features.Scaler](dir, EnergyFamily),
		Train:  EnergyTrainer(src, logger),
		Check:  CheckEnergy,
		Logger: logger,
	})
}
