// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "energyml"

var (
	predictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_total",
		Help:      "Scored records by model and outcome.",
	}, []string{"model", "outcome"})

	predictionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "prediction_duration_seconds",
		Help:      "Time spent in the inference engine per request.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"model"})

	trainingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "model_trainings_total",
		Help:      "Training runs by model and result.",
	}, []string{"model", "result"})

	trainingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "model_training_duration_seconds",
		Help:      "Wall time of training runs.",
		Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"model"})

	modelState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "model_state",
		Help:      "1 for the current readiness state of each model, 0 otherwise.",
	}, []string{"model", "state"})

	weatherRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "weather_requests_total",
		Help:      "Calls to the weather provider by result.",
	}, []string{"result"})

	weatherCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "weather_cache_total",
		Help:      "Weather cache lookups by result.",
	}, []string{"result"})

	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Fraud assessment events by publish result.",
	}, []string{"result"})
)

// CountPredictions adds n records with the given outcome.
func CountPredictions(model, outcome string, n int) {
	predictionsTotal.WithLabelValues(model, outcome).Add(float64(n))
}

// ObservePredictionLatency records time spent serving one request.
func ObservePredictionLatency(model string, d time.Duration) {
	predictionDuration.WithLabelValues(model).Observe(d.Seconds())
}

// ObserveTraining records one training run.
func ObserveTraining(model string, ok bool, d time.Duration) {
	trainingsTotal.WithLabelValues(model, result(ok)).Inc()
	trainingDuration.WithLabelValues(model).Observe(d.Seconds())
}

// SetModelState sets the gauge for state to 1 and every other state to 0.
func SetModelState(model, state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		modelState.WithLabelValues(model, s).Set(v)
	}
}

// IncWeatherRequest counts a provider call; result is "ok", "error" or "timeout".
func IncWeatherRequest(result string) {
	weatherRequests.WithLabelValues(result).Inc()
}

// IncWeatherCache counts a cache lookup.
func IncWeatherCache(hit bool) {
	if hit {
		weatherCache.WithLabelValues("hit").Inc()
		return
	}
	weatherCache.WithLabelValues("miss").Inc()
}

// IncEventPublish counts a publish attempt.
func IncEventPublish(ok bool) {
	eventsPublished.WithLabelValues(result(ok)).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
