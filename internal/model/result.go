package model

// FraudThreshold separates fraud from non-fraud decisions. It is fixed.
const FraudThreshold = 0.5

// FraudResult is the scored decision for one record.
type FraudResult struct {
	Fraud       bool
	Probability float64
	Threshold   float64
}

// NewFraudResult derives the decision from a probability.
func NewFraudResult(p float64) FraudResult {
	return FraudResult{
		Fraud:       p >= FraudThreshold,
		Probability: p,
		Threshold:   FraudThreshold,
	}
}

// EnergyEstimate is the area-scaled yield for a location.
type EnergyEstimate struct {
	Solar float64
	Wind  float64

	AreaSquareMeters float64
	Location         string
	Coordinates      Coordinates
	Conditions       Conditions
}
