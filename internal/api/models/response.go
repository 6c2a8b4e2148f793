package models

import (
	"time"

	"energy-ml/internal/model"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// FraudResponse answers POST /predict_fraud.
type FraudResponse struct {
	FraudPrediction  bool         `json:"fraud_prediction"`
	FraudProbability float64      `json:"fraud_probability"`
	Threshold        float64      `json:"threshold"`
	InputData        model.Record `json:"input_data"`
}

// BatchFraudResponse answers POST /batch_predict_fraud. Slices are in
// request order.
type BatchFraudResponse struct {
	Predictions   []bool         `json:"predictions"`
	Probabilities []float64      `json:"probabilities"`
	Threshold     float64        `json:"threshold"`
	InputData     []model.Record `json:"input_data"`
}

// EnergyResponse answers POST /predict_energy. Values are in the model's
// per-square-meter unit multiplied by the area in m².
type EnergyResponse struct {
	SolarEnergy float64 `json:"solar-energy"`
	WindEnergy  float64 `json:"wind-energy"`
}

// ModelInfoResponse describes the ready pair of one model family.
type ModelInfoResponse struct {
	Model          string             `json:"model"`
	ModelType      string             `json:"model_type"`
	State          string             `json:"state"`
	Features       []string           `json:"features"`
	EncodedColumns []string           `json:"encoded_columns"`
	Parameters     any                `json:"parameters"`
	Scores         map[string]float64 `json:"scores,omitempty"`
	PairID         string             `json:"pair_id"`
	TrainedAt      time.Time          `json:"trained_at"`
	Origin         string             `json:"origin"`
}

// HealthResponse answers GET /health. Status is "ok" when every model is
// READY and "degraded" otherwise; the endpoint itself always returns 200.
type HealthResponse struct {
	Status string            `json:"status"`
	Models map[string]string `json:"models"`
}
