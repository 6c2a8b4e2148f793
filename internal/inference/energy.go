package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"energy-ml/internal/data"
	"energy-ml/internal/features"
	"energy-ml/internal/metrics"
	"energy-ml/internal/model"
	"energy-ml/internal/training"
)

// EnergyModels yields the energy pair to estimate with.
type EnergyModels interface {
	Ready(ctx context.Context) (*training.EnergyPair, error)
}

// WeatherProvider returns current conditions at a coordinate.
type WeatherProvider interface {
	CurrentConditions(ctx context.Context, lat, lon float64) (model.Conditions, error)
}

// CityLocator resolves a city name. found is false when a fallback
// location was returned.
type CityLocator interface {
	Lookup(name string) (data.City, bool)
}

// EnergyRequest asks for the yield of an area at a named location.
type EnergyRequest struct {
	Location string
	Area     float64
	Unit     model.AreaUnit
}

// Validate rejects areas that cannot be scaled.
func (r EnergyRequest) Validate() error {
	if math.IsNaN(r.Area) || math.IsInf(r.Area, 0) {
		return &model.ValidationError{Index: -1, Field: "area", Reason: model.ReasonNotNumeric}
	}
	if r.Area < 0 {
		return &model.ValidationError{Index: -1, Field: "area", Reason: model.ReasonInvalid}
	}
	return nil
}

// EnergyEngine estimates solar and wind yield from live weather.
type EnergyEngine struct {
	models  EnergyModels
	weather WeatherProvider
	cities  CityLocator
	logger  *slog.Logger
}

func NewEnergyEngine(models EnergyModels, weather WeatherProvider, cities CityLocator, logger *slog.Logger) *EnergyEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnergyEngine{models: models, weather: weather, cities: cities, logger: logger}
}

// Estimate looks up the location, fetches its current conditions and runs
// the energy pair. Yields are clamped at zero before scaling by area.
func (e *EnergyEngine) Estimate(ctx context.Context, req EnergyRequest) (model.EnergyEstimate, error) {
	if err := req.Validate(); err != nil {
		return model.EnergyEstimate{}, err
	}
	start := time.Now()
	defer func() { metrics.ObservePredictionLatency(training.EnergyFamily, time.Since(start)) }()

	pair, err := e.models.Ready(ctx)
	if err != nil {
		metrics.CountPredictions(training.EnergyFamily, "error", 1)
		return model.EnergyEstimate{}, err
	}

	city, found := e.cities.Lookup(req.Location)
	if !found {
		e.logger.Debug("location not found, using default",
			slog.String("location", req.Location),
			slog.String("default", city.Name))
	}

	cond, err := e.weather.CurrentConditions(ctx, city.Lat, city.Lon)
	if err != nil {
		metrics.CountPredictions(training.EnergyFamily, "error", 1)
		var ue *data.UpstreamError
		if errors.As(err, &ue) {
			return model.EnergyEstimate{}, err
		}
		return model.EnergyEstimate{}, fmt.Errorf("failed to fetch weather data: %w", err)
	}

	raw := features.EnergyRow(cond)
	x := make([]float64, len(raw))
	if len(raw) != pair.Encoder.Width() {
		metrics.CountPredictions(training.EnergyFamily, "error", 1)
		return model.EnergyEstimate{}, &features.SchemaError{Index: -1, Reason: fmt.Sprintf("scaler expects %d columns, got %d", pair.Encoder.Width(), len(raw))}
	}
	pair.Encoder.TransformRow(x, raw)

	solar, wind, err := pair.Model.Predict(x)
	if err != nil {
		metrics.CountPredictions(training.EnergyFamily, "error", 1)
		return model.EnergyEstimate{}, err
	}
	m2 := model.ToSquareMeters(req.Area, req.Unit)
	metrics.CountPredictions(training.EnergyFamily, "ok", 1)

	return model.EnergyEstimate{
		Solar:            math.Max(0, solar) * m2,
		Wind:             math.Max(0, wind) * m2,
		AreaSquareMeters: m2,
		Location:         city.Name,
		Coordinates:      city.Coordinates,
		Conditions:       cond,
	}, nil
}
