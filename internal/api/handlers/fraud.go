package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"energy-ml/internal/api/models"
	"energy-ml/internal/model"
)

// FraudPredictor scores transaction records.
type FraudPredictor interface {
	PredictOne(ctx context.Context, rec model.Record) (model.FraudResult, error)
	PredictBatch(ctx context.Context, recs []model.Record) ([]model.FraudResult, error)
}

// FraudHandler handles fraud scoring requests.
type FraudHandler struct {
	engine FraudPredictor
	logger *slog.Logger
}

// NewFraudHandler creates a new fraud handler
func NewFraudHandler(engine FraudPredictor, logger *slog.Logger) *FraudHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FraudHandler{engine: engine, logger: logger}
}

// PredictFraud handles POST /predict_fraud
func (h *FraudHandler) PredictFraud(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		return
	}
	if firstByte(raw) != '{' {
		badRequest(c, "INVALID_REQUEST", "Request body must be a JSON object")
		return
	}
	var rec model.Record
	if err := decodeNumbers(raw, &rec); err != nil {
		badRequest(c, "INVALID_JSON", "Invalid JSON: "+err.Error())
		return
	}

	res, err := h.engine.PredictOne(c.Request.Context(), rec)
	if err != nil {
		respondError(c, h.logger, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, models.FraudResponse{
		FraudPrediction:  res.Fraud,
		FraudProbability: res.Probability,
		Threshold:        res.Threshold,
		InputData:        rec,
	})
}

// BatchPredictFraud handles POST /batch_predict_fraud
func (h *FraudHandler) BatchPredictFraud(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		return
	}
	if firstByte(raw) != '[' {
		badRequest(c, "INVALID_REQUEST", "Input must be a list of records")
		return
	}
	var recs []model.Record
	if err := decodeNumbers(raw, &recs); err != nil {
		badRequest(c, "INVALID_JSON", "Invalid JSON: "+err.Error())
		return
	}

	results, err := h.engine.PredictBatch(c.Request.Context(), recs)
	if err != nil {
		respondError(c, h.logger, err, http.StatusBadRequest)
		return
	}

	resp := models.BatchFraudResponse{
		Predictions:   make([]bool, len(results)),
		Probabilities: make([]float64, len(results)),
		Threshold:     model.FraudThreshold,
		InputData:     recs,
	}
	for i, r := range results {
		resp.Predictions[i] = r.Fraud
		resp.Probabilities[i] = r.Probability
	}
	c.JSON(http.StatusOK, resp)
}

func readBody(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, "INVALID_REQUEST", "Failed to read request body")
		return nil, false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		badRequest(c, "INVALID_JSON", "Request body is empty")
		return nil, false
	}
	return raw, true
}

func firstByte(raw []byte) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}

// decodeNumbers keeps numbers as json.Number so echoed input matches the
// request exactly.
func decodeNumbers(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
