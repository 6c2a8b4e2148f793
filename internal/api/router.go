// Package api assembles the HTTP surface: gin routes, middleware and the
// CORS wrapper.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"energy-ml/internal/api/handlers"
	"energy-ml/internal/api/middleware"
	"energy-ml/internal/config"
	"energy-ml/internal/metrics"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Fraud        handlers.FraudPredictor
	Energy       handlers.EnergyEstimator
	FraudModels  handlers.FraudModels
	EnergyModels handlers.EnergyModels
	CORS         config.CORSConfig
	Logger       *slog.Logger
}

// NewRouter returns the complete handler, CORS included.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(middleware.Logger(logger))
	router.Use(middleware.ErrorHandler(logger))

	fraudHandler := handlers.NewFraudHandler(d.Fraud, logger)
	energyHandler := handlers.NewEnergyHandler(d.Energy, logger)
	modelHandler := handlers.NewModelHandler(d.FraudModels, d.EnergyModels, logger)

	router.GET("/health", modelHandler.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.POST("/predict_fraud", fraudHandler.PredictFraud)
	router.POST("/batch_predict_fraud", fraudHandler.BatchPredictFraud)
	router.POST("/predict_energy", energyHandler.PredictEnergy)
	router.POST("/predict", energyHandler.PredictEnergy)
	router.GET("/model_info", modelHandler.ModelInfo)

	admin := router.Group("/admin")
	{
		admin.POST("/retrain", modelHandler.Retrain)
	}

	return middleware.CORS(d.CORS).Handler(router)
}
