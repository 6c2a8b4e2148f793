// Package inference turns validated requests into predictions using the
// pair a lifecycle manager has made ready.
package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"energy-ml/internal/events"
	"energy-ml/internal/metrics"
	"energy-ml/internal/model"
	"energy-ml/internal/training"
)

// FraudModels yields the fraud pair to score with.
type FraudModels interface {
	Ready(ctx context.Context) (*training.FraudPair, error)
}

// FraudEngine scores transaction records.
type FraudEngine struct {
	models    FraudModels
	publisher events.Publisher
	logger    *slog.Logger
}

// NewFraudEngine returns an engine. A nil publisher disables events.
func NewFraudEngine(models FraudModels, publisher events.Publisher, logger *slog.Logger) *FraudEngine {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FraudEngine{models: models, publisher: publisher, logger: logger}
}

// PredictOne validates and scores a single record. Validation runs before
// the model is touched.
func (e *FraudEngine) PredictOne(ctx context.Context, rec model.Record) (model.FraudResult, error) {
	if err := rec.Validate(); err != nil {
		metrics.CountPredictions(training.FraudFamily, "invalid", 1)
		return model.FraudResult{}, err
	}
	results, err := e.score(ctx, []model.Record{rec})
	if err != nil {
		return model.FraudResult{}, err
	}
	return results[0], nil
}

// PredictBatch validates every record, then scores them as one matrix.
// The first invalid record rejects the whole batch. Results are in input
// order and match PredictOne on each record.
func (e *FraudEngine) PredictBatch(ctx context.Context, recs []model.Record) ([]model.FraudResult, error) {
	if len(recs) == 0 {
		return nil, model.ErrEmptyBatch
	}
	for i, rec := range recs {
		if err := rec.Validate(); err != nil {
			metrics.CountPredictions(training.FraudFamily, "invalid", len(recs))
			var ve *model.ValidationError
			if errors.As(err, &ve) {
				return nil, ve.AtIndex(i)
			}
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return e.score(ctx, recs)
}

func (e *FraudEngine) score(ctx context.Context, recs []model.Record) ([]model.FraudResult, error) {
	start := time.Now()
	defer func() { metrics.ObservePredictionLatency(training.FraudFamily, time.Since(start)) }()

	pair, err := e.models.Ready(ctx)
	if err != nil {
		metrics.CountPredictions(training.FraudFamily, "error", len(recs))
		return nil, err
	}

	X, err := pair.Encoder.Encode(recs)
	if err != nil {
		metrics.CountPredictions(training.FraudFamily, "error", len(recs))
		return nil, err
	}

	results := make([]model.FraudResult, len(X))
	evts := make([]events.FraudAssessed, len(X))
	frauds := 0
	for i, row := range X {
		p, err := pair.Model.PredictProba(row)
		if err != nil {
			metrics.CountPredictions(training.FraudFamily, "error", len(recs))
			return nil, fmt.Errorf("failed to score record %d: %w", i, err)
		}
		results[i] = model.NewFraudResult(p)
		evts[i] = events.NewFraudAssessed(pair.Meta.PairID, recs[i], results[i])
		if results[i].Fraud {
			frauds++
		}
	}
	metrics.CountPredictions(training.FraudFamily, "fraud", frauds)
	metrics.CountPredictions(training.FraudFamily, "legit", len(results)-frauds)

	if err := e.publisher.Publish(ctx, evts...); err != nil {
		e.logger.Warn("failed to publish fraud assessments", slog.Any("error", err))
	}
	return results, nil
}
