package inference

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-ml/internal/artifact"
	"energy-ml/internal/data"
	"energy-ml/internal/features"
	"energy-ml/internal/model"
	"energy-ml/internal/regress"
	"energy-ml/internal/training"
)

type stubEnergyModels struct {
	pair *training.EnergyPair
	err  error
}

func (s *stubEnergyModels) Ready(context.Context) (*training.EnergyPair, error) {
	return s.pair, s.err
}

type stubWeather struct {
	cond     model.Conditions
	err      error
	lat, lon float64
}

func (s *stubWeather) CurrentConditions(_ context.Context, lat, lon float64) (model.Conditions, error) {
	s.lat, s.lon = lat, lon
	return s.cond, s.err
}

// identityPair has a unit scaler and models that read single columns, so
// outputs are easy to predict by hand.
func identityPair(solarIntercept, windIntercept float64) *training.EnergyPair {
	n := len(features.EnergyColumns)
	scaler := &features.Scaler{
		Columns: features.EnergyColumns,
		Mean:    make([]float64, n),
		Scale:   make([]float64, n),
	}
	for i := range scaler.Scale {
		scaler.Scale[i] = 1
	}
	solarW := make([]float64, n)
	solarW[0] = 1 // Log_GHI
	windW := make([]float64, n)
	windW[2] = 1 // Wind_speed
	return &training.EnergyPair{
		Model: &regress.EnergyModel{
			Solar: regress.Linear{Target: "solar", Intercept: solarIntercept, Weights: solarW},
			Wind:  regress.Linear{Target: "wind", Intercept: windIntercept, Weights: windW},
		},
		Encoder: scaler,
		Meta:    artifact.NewMeta(),
	}
}

func cities() *data.CityTable {
	return data.NewCityTable([]data.City{
		{Name: "Lyon", Coordinates: model.Coordinates{Lat: 45.76, Lon: 4.84}},
	}, data.DefaultLocation)
}

func TestEstimate_ScalesByArea(t *testing.T) {
	weather := &stubWeather{cond: model.Conditions{SolarRadiation: math.E - 1, WindSpeed: 3}}
	e := NewEnergyEngine(&stubEnergyModels{pair: identityPair(0, 0)}, weather, cities(), quiet)

	tests := []struct {
		area float64
		unit model.AreaUnit
		m2   float64
	}{
		{2, model.UnitHectare, 20000},
		{1, model.UnitAcre, 4046.85642},
		{5, model.UnitSquareMeter, 5},
	}
	for _, tt := range tests {
		t.Run(tt.unit.String(), func(t *testing.T) {
			est, err := e.Estimate(context.Background(), EnergyRequest{Location: "Lyon", Area: tt.area, Unit: tt.unit})
			require.NoError(t, err)
			assert.InDelta(t, tt.m2, est.AreaSquareMeters, 1e-9)
			assert.InDelta(t, 1*tt.m2, est.Solar, 1e-6)
			assert.InDelta(t, 3*tt.m2, est.Wind, 1e-6)
		})
	}
	assert.Equal(t, 45.76, weather.lat)
	assert.Equal(t, 4.84, weather.lon)
}

func TestEstimate_ClampsNegative(t *testing.T) {
	weather := &stubWeather{cond: model.Conditions{}}
	e := NewEnergyEngine(&stubEnergyModels{pair: identityPair(-5, -1)}, weather, cities(), quiet)

	est, err := e.Estimate(context.Background(), EnergyRequest{Location: "Lyon", Area: 1, Unit: model.UnitHectare})
	require.NoError(t, err)
	assert.Equal(t, 0.0, est.Solar)
	assert.Equal(t, 0.0, est.Wind)
}

func TestEstimate_UnknownCityUsesDefault(t *testing.T) {
	weather := &stubWeather{}
	e := NewEnergyEngine(&stubEnergyModels{pair: identityPair(0, 0)}, weather, cities(), quiet)

	est, err := e.Estimate(context.Background(), EnergyRequest{Location: "Atlantis", Area: 1, Unit: model.UnitSquareMeter})
	require.NoError(t, err)
	assert.Equal(t, "Paris", est.Location)
	assert.Equal(t, 48.8588443, weather.lat)
	assert.Equal(t, 2.2943506, weather.lon)
}

func TestEstimate_UpstreamError(t *testing.T) {
	upstream := &data.UpstreamError{StatusCode: 503, Code: "UPSTREAM_UNAVAILABLE", Message: "down", Retryable: true}
	e := NewEnergyEngine(&stubEnergyModels{pair: identityPair(0, 0)}, &stubWeather{err: upstream}, cities(), quiet)

	_, err := e.Estimate(context.Background(), EnergyRequest{Location: "Lyon", Area: 1, Unit: model.UnitHectare})
	var ue *data.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 503, ue.StatusCode)
}

func TestEstimate_InvalidArea(t *testing.T) {
	e := NewEnergyEngine(&stubEnergyModels{err: errors.New("must not be called")}, &stubWeather{}, cities(), quiet)

	for _, area := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := e.Estimate(context.Background(), EnergyRequest{Area: area, Unit: model.UnitHectare})
		var ve *model.ValidationError
		assert.True(t, errors.As(err, &ve), "area %v", area)
	}
}

func TestEstimate_TrainedPair(t *testing.T) {
	ctx := context.Background()
	mgr := training.NewEnergyManager(t.TempDir(), &data.SyntheticEnergy{Samples: 300, Seed: 42}, quiet)
	weather := &stubWeather{cond: model.Conditions{Temperature: 20, Pressure: 1013, CloudCover: 10, WindSpeed: 8, SolarRadiation: 700}}
	e := NewEnergyEngine(mgr, weather, cities(), quiet)

	est, err := e.Estimate(ctx, EnergyRequest{Location: "Lyon", Area: 1, Unit: model.UnitSquareMeter})
	require.NoError(t, err)
	assert.Greater(t, est.Solar, 0.0)
	assert.Greater(t, est.Wind, 0.0)
	assert.Equal(t, weather.cond, est.Conditions)
}
