package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"energy-ml/internal/api/models"
	"energy-ml/internal/inference"
	"energy-ml/internal/model"
)

// EnergyEstimator estimates yield for a location and area.
type EnergyEstimator interface {
	Estimate(ctx context.Context, req inference.EnergyRequest) (model.EnergyEstimate, error)
}

// EnergyHandler handles energy estimate requests.
type EnergyHandler struct {
	engine EnergyEstimator
	logger *slog.Logger
}

// NewEnergyHandler creates a new energy handler
func NewEnergyHandler(engine EnergyEstimator, logger *slog.Logger) *EnergyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnergyHandler{engine: engine, logger: logger}
}

// PredictEnergy handles POST /predict_energy and its /predict alias
func (h *EnergyHandler) PredictEnergy(c *gin.Context) {
	var req models.EnergyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Area == nil {
		respondError(c, h.logger, &model.ValidationError{Index: -1, Field: "area", Reason: model.ReasonMissing}, http.StatusBadRequest)
		return
	}
	if req.Unit == nil {
		respondError(c, h.logger, &model.ValidationError{Index: -1, Field: "unit", Reason: model.ReasonMissing}, http.StatusBadRequest)
		return
	}

	est, err := h.engine.Estimate(c.Request.Context(), inference.EnergyRequest{
		Location: req.Location,
		Area:     float64(*req.Area),
		Unit:     model.AreaUnitFromFloat(float64(*req.Unit)),
	})
	if err != nil {
		// A scaler/model mismatch here is never the caller's fault.
		respondError(c, h.logger, err, http.StatusInternalServerError)
		return
	}

	h.logger.Debug("energy estimate",
		slog.String("location", est.Location),
		slog.Float64("area_m2", est.AreaSquareMeters),
		slog.Float64("solar", est.Solar),
		slog.Float64("wind", est.Wind))

	c.JSON(http.StatusOK, models.EnergyResponse{
		SolarEnergy: est.Solar,
		WindEnergy:  est.Wind,
	})
}
