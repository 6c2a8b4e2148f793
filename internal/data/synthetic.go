package data

import (
	"context"
	"math"
	"math/rand"

	"github.com/shopspring/decimal"

	"energy-ml/internal/features"
	"energy-ml/internal/model"
)

// Levels drawn by the synthetic generator.
var (
	ProducerTypes       = []string{"solar", "wind", "hydro"}
	GridConnectionTypes = []string{"direct", "indirect"}
	LocationTypes       = []string{"urban", "rural"}
	WeatherConditions   = []string{"normal", "extreme"}
)

// SyntheticFraud generates transactions with a planted fraud signal:
// honest rows sell at most what they produce and bill sold × price, while
// fraudulent rows oversell, misbill and deviate more from expected
// consumption.
type SyntheticFraud struct {
	Samples   int
	Seed      int64
	FraudRate float64
}

// NewSyntheticFraud uses the historical defaults: 1000 rows, seed 42, 10% fraud.
func NewSyntheticFraud() *SyntheticFraud {
	return &SyntheticFraud{Samples: 1000, Seed: 42, FraudRate: 0.1}
}

func (s *SyntheticFraud) FraudDataset(ctx context.Context) (*FraudDataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(s.Seed))
	uniform := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }
	pick := func(levels []string) string { return levels[rng.Intn(len(levels))] }

	ds := &FraudDataset{
		Records: make([]model.Record, s.Samples),
		Labels:  make([]int, s.Samples),
	}
	for i := 0; i < s.Samples; i++ {
		fraud := rng.Float64() < s.FraudRate

		produced := decimal.NewFromFloat(uniform(10, 1000)).Round(2)
		price := decimal.NewFromFloat(uniform(0.05, 0.5)).Round(3)
		var sold decimal.Decimal
		var billed decimal.Decimal
		var deviation float64
		if fraud {
			sold = produced.Mul(decimal.NewFromFloat(uniform(1.05, 1.8))).Round(2)
			billed = sold.Mul(price).Mul(decimal.NewFromFloat(pickFactor(rng))).Round(2)
			deviation = uniform(-20, 20)
		} else {
			sold = produced.Mul(decimal.NewFromFloat(uniform(0.6, 1.0))).Round(2)
			billed = sold.Mul(price).Round(2)
			deviation = uniform(-5, 5)
		}

		ds.Records[i] = model.Record{
			model.FieldEnergyProduced:     produced.InexactFloat64(),
			model.FieldEnergySold:         sold.InexactFloat64(),
			model.FieldPricePerKWh:        price.InexactFloat64(),
			model.FieldTotalAmount:        billed.InexactFloat64(),
			model.FieldConsumptionDev:     math.Round(deviation*100) / 100,
			model.FieldProducerType:       pick(ProducerTypes),
			model.FieldGridConnectionType: pick(GridConnectionTypes),
			model.FieldLocationType:       pick(LocationTypes),
			model.FieldWeatherConditions:  pick(WeatherConditions),
		}
		if fraud {
			ds.Labels[i] = 1
		}
	}
	return ds, nil
}

// pickFactor returns a billing distortion clearly away from 1.
func pickFactor(rng *rand.Rand) float64 {
	if rng.Intn(2) == 0 {
		return 0.2 + rng.Float64()*0.4
	}
	return 1.5 + rng.Float64()*2.5
}

// SyntheticEnergy generates weather rows and plausible per-m² yields. It
// stands in for the historical dataset in development.
type SyntheticEnergy struct {
	Samples int
	Seed    int64
}

func (s *SyntheticEnergy) EnergyDataset(ctx context.Context) (*EnergyDataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(s.Seed))
	uniform := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }

	ds := &EnergyDataset{
		X:     make([][]float64, s.Samples),
		Solar: make([]float64, s.Samples),
		Wind:  make([]float64, s.Samples),
	}
	for i := 0; i < s.Samples; i++ {
		c := model.Conditions{
			Temperature:    uniform(-10, 38),
			Pressure:       uniform(980, 1040),
			CloudCover:     uniform(0, 100),
			WindSpeed:      uniform(0, 30),
			SolarRadiation: uniform(0, 1000),
		}
		ds.X[i] = features.EnergyRow(c)
		// Roughly Wh per m² for the current hour.
		ds.Solar[i] = math.Max(0, 0.18*c.SolarRadiation*(1-0.6*c.CloudCover/100)-0.4*math.Max(0, c.Temperature-25)+rng.NormFloat64()*3)
		ds.Wind[i] = math.Max(0, 0.35*c.WindSpeed*c.WindSpeed+0.01*(c.Pressure-1000)+rng.NormFloat64()*2)
	}
	return ds, nil
}
