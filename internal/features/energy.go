package features

import (
	"math"

	"energy-ml/internal/model"
)

// Energy model columns, in the order of the historical dataset.
var EnergyColumns = []string{
	"Log_GHI",
	"Clouds_all",
	"Wind_speed",
	"Wind_speed^2",
	"Temp",
	"Temp^2",
	"Pressure",
	"Interaction_LogGHI_Clouds",
}

// EnergyRow derives the raw (unscaled) energy features from conditions.
func EnergyRow(c model.Conditions) []float64 {
	ghi := c.SolarRadiation
	if ghi < 0 {
		ghi = 0
	}
	logGHI := math.Log(ghi + 1)
	return []float64{
		logGHI,
		c.CloudCover,
		c.WindSpeed,
		c.WindSpeed * c.WindSpeed,
		c.Temperature,
		c.Temperature * c.Temperature,
		c.Pressure,
		logGHI * c.CloudCover,
	}
}
