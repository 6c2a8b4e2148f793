package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"energy-ml/internal/api/models"
	"energy-ml/internal/data"
	"energy-ml/internal/features"
	"energy-ml/internal/lifecycle"
	"energy-ml/internal/model"
)

// respondError maps a domain error to a status and the standard body.
// schemaStatus is the status used for features.SchemaError, which is a
// client error only where the request shaped the encoder input.
func respondError(c *gin.Context, logger *slog.Logger, err error, schemaStatus int) {
	var (
		ve *model.ValidationError
		se *features.SchemaError
		ue *data.UpstreamError
		ie *lifecycle.InitializationError
	)
	switch {
	case errors.As(err, &ve):
		details := map[string]any{"field": ve.Field, "reason": ve.Reason}
		if ve.Index >= 0 {
			details["index"] = ve.Index
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   ve.Error(),
			Code:    "VALIDATION_ERROR",
			Details: details,
		})
	case errors.Is(err, model.ErrEmptyBatch):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Batch must contain at least one record",
			Code:  "EMPTY_BATCH",
		})
	case errors.As(err, &se):
		if schemaStatus >= 500 {
			logger.Error("encoder schema mismatch", slog.Any("error", err))
		}
		c.JSON(schemaStatus, models.ErrorResponse{
			Error: se.Error(),
			Code:  "SCHEMA_ERROR",
		})
	case errors.As(err, &ue):
		logger.Warn("weather provider failed", slog.Any("error", err))
		details := map[string]any{"retryable": ue.Retryable}
		if ue.StatusCode != 0 {
			details["status_code"] = ue.StatusCode
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   ue.Message,
			Code:    ue.Code,
			Details: details,
		})
	case errors.As(err, &ie):
		logger.Error("model unavailable", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   ie.Error(),
			Code:    "MODEL_UNAVAILABLE",
			Details: map[string]any{"model": ie.Name, "attempts": ie.Attempts},
		})
	default:
		logger.Error("request failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: err.Error(),
			Code:  "INTERNAL_ERROR",
		})
	}
}

func badRequest(c *gin.Context, code, msg string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msg, Code: code})
}
