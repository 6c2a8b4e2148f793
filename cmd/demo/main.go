package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"energy-ml/internal/data"
	"energy-ml/internal/forest"
	"energy-ml/internal/inference"
	"energy-ml/internal/model"
	"energy-ml/internal/training"
)

// Demo:
// - Train a small fraud forest and the energy regressions on synthetic data
// - Score a plausible transaction and a tampered copy
// - Estimate yield for a few fixed weather readings, no network needed
func main() {
	samples := flag.Int("samples", 1000, "Synthetic training rows")
	trees := flag.Int("trees", 50, "Number of trees in the fraud forest")
	area := flag.Float64("area", 1, "Area to estimate for")
	unit := flag.Float64("unit", 1, "Area unit: 1=hectare, 2=acre, other=m²")
	verbose := flag.Bool("v", false, "Log training progress")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	dir, err := os.MkdirTemp("", "energy-ml-demo-")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	params := forest.DefaultParams()
	params.NEstimators = *trees
	fraudMgr := training.NewFraudManager(dir, &data.SyntheticFraud{Samples: *samples, Seed: 42, FraudRate: 0.1}, params, logger)
	energyMgr := training.NewEnergyManager(dir, &data.SyntheticEnergy{Samples: *samples, Seed: 42}, logger)

	ctx := context.Background()
	fraud := inference.NewFraudEngine(fraudMgr, nil, logger)

	honest := model.Record{
		model.FieldEnergyProduced:     500.0,
		model.FieldEnergySold:         480.0,
		model.FieldPricePerKWh:        0.2,
		model.FieldTotalAmount:        96.0,
		model.FieldConsumptionDev:     2.0,
		model.FieldProducerType:       "solar",
		model.FieldGridConnectionType: "direct",
		model.FieldLocationType:       "urban",
		model.FieldWeatherConditions:  "normal",
	}
	tampered := model.Record{}
	for k, v := range honest {
		tampered[k] = v
	}
	tampered[model.FieldEnergySold] = 820.0
	tampered[model.FieldTotalAmount] = 40.0
	tampered[model.FieldConsumptionDev] = 17.5

	results, err := fraud.PredictBatch(ctx, []model.Record{honest, tampered})
	if err != nil {
		panic(err)
	}
	fmt.Println("Fraud scoring")
	for i, name := range []string{"honest", "tampered"} {
		fmt.Printf("  %-9s p=%.3f fraud=%v\n", name, results[i].Probability, results[i].Fraud)
	}

	readings := []struct {
		name string
		cond model.Conditions
	}{
		{"clear summer noon", model.Conditions{Temperature: 27, Pressure: 1018, CloudCover: 5, WindSpeed: 6, SolarRadiation: 850}},
		{"overcast and windy", model.Conditions{Temperature: 11, Pressure: 995, CloudCover: 95, WindSpeed: 24, SolarRadiation: 120}},
		{"calm night", model.Conditions{Temperature: 8, Pressure: 1025, CloudCover: 30, WindSpeed: 2}},
	}
	u := model.AreaUnitFromFloat(*unit)
	fmt.Printf("\nEnergy estimates for %.2f %s (%.0f m²)\n", *area, u, model.ToSquareMeters(*area, u))
	for _, r := range readings {
		engine := inference.NewEnergyEngine(energyMgr, staticWeather(r.cond), data.NewCityTable(nil, data.DefaultLocation), logger)
		est, err := engine.Estimate(ctx, inference.EnergyRequest{Location: "Paris", Area: *area, Unit: u})
		if err != nil {
			panic(err)
		}
		fmt.Printf("  %-19s solar=%12.1f wind=%12.1f\n", r.name, est.Solar, est.Wind)
	}

	if p, ok := energyMgr.Current(); ok {
		fmt.Printf("\nEnergy model hold-out R²: solar=%.3f wind=%.3f\n", p.Model.SolarTestR2, p.Model.WindTestR2)
	}
}

type staticWeather model.Conditions

func (s staticWeather) CurrentConditions(context.Context, float64, float64) (model.Conditions, error) {
	return model.Conditions(s), nil
}
