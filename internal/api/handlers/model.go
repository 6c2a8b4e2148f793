package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"energy-ml/internal/api/models"
	"energy-ml/internal/features"
	"energy-ml/internal/lifecycle"
	"energy-ml/internal/model"
	"energy-ml/internal/training"
)

// FraudModels is the fraud lifecycle manager as seen by the API.
type FraudModels interface {
	Ready(ctx context.Context) (*training.FraudPair, error)
	Retrain(ctx context.Context) (*training.FraudPair, error)
	Status() lifecycle.Status
}

// EnergyModels is the energy lifecycle manager as seen by the API.
type EnergyModels interface {
	Ready(ctx context.Context) (*training.EnergyPair, error)
	Retrain(ctx context.Context) (*training.EnergyPair, error)
	Status() lifecycle.Status
}

// ModelHandler serves model metadata, retraining and health.
type ModelHandler struct {
	fraud  FraudModels
	energy EnergyModels
	logger *slog.Logger
}

// NewModelHandler creates a new model handler
func NewModelHandler(fraud FraudModels, energy EnergyModels, logger *slog.Logger) *ModelHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelHandler{fraud: fraud, energy: energy, logger: logger}
}

// ModelInfo handles GET /model_info?model=fraud|energy
func (h *ModelHandler) ModelInfo(c *gin.Context) {
	h.describe(c, false)
}

// Retrain handles POST /admin/retrain?model=fraud|energy
func (h *ModelHandler) Retrain(c *gin.Context) {
	h.describe(c, true)
}

func (h *ModelHandler) describe(c *gin.Context, retrain bool) {
	var q models.ModelQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	ctx := c.Request.Context()

	switch strings.ToLower(q.Model) {
	case "", training.FraudFamily:
		get := h.fraud.Ready
		if retrain {
			get = h.fraud.Retrain
		}
		pair, err := get(ctx)
		if err != nil {
			respondError(c, h.logger, err, http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, fraudInfo(pair, h.fraud.Status()))
	case training.EnergyFamily:
		get := h.energy.Ready
		if retrain {
			get = h.energy.Retrain
		}
		pair, err := get(ctx)
		if err != nil {
			respondError(c, h.logger, err, http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, energyInfo(pair, h.energy.Status()))
	default:
		badRequest(c, "UNKNOWN_MODEL", "Unknown model "+q.Model+"; expected fraud or energy")
	}
}

// Health handles GET /health
func (h *ModelHandler) Health(c *gin.Context) {
	resp := models.HealthResponse{
		Status: "ok",
		Models: map[string]string{
			training.FraudFamily:  h.fraud.Status().State.String(),
			training.EnergyFamily: h.energy.Status().State.String(),
		},
	}
	for _, s := range resp.Models {
		if s != lifecycle.Ready.String() {
			resp.Status = "degraded"
		}
	}
	c.JSON(http.StatusOK, resp)
}

func fraudInfo(p *training.FraudPair, st lifecycle.Status) models.ModelInfoResponse {
	return models.ModelInfoResponse{
		Model:          training.FraudFamily,
		ModelType:      "Random Forest Classifier",
		State:          st.State.String(),
		Features:       model.RequiredFields(),
		EncodedColumns: p.Encoder.Columns(),
		Parameters:     p.Model.Params,
		PairID:         p.Meta.PairID.String(),
		TrainedAt:      p.Meta.TrainedAt,
		Origin:         p.Origin,
	}
}

func energyInfo(p *training.EnergyPair, st lifecycle.Status) models.ModelInfoResponse {
	return models.ModelInfoResponse{
		Model:          training.EnergyFamily,
		ModelType:      "Linear Regression",
		State:          st.State.String(),
		Features:       features.EnergyColumns,
		EncodedColumns: p.Encoder.Columns,
		Parameters: map[string]any{
			"targets":       []string{"solar", "wind"},
			"test_fraction": training.EnergyTestFraction,
			"split_seed":    training.EnergySplitSeed,
		},
		Scores: map[string]float64{
			"solar_r2":      p.Model.Solar.R2,
			"wind_r2":       p.Model.Wind.R2,
			"solar_test_r2": p.Model.SolarTestR2,
			"wind_test_r2":  p.Model.WindTestR2,
		},
		PairID:    p.Meta.PairID.String(),
		TrainedAt: p.Meta.TrainedAt,
		Origin:    p.Origin,
	}
}
