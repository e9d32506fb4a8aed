package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ali-crawler/health"
	"ali-crawler/utils"
)

const serviceName = "sentiment-web"

// NewRouter wires the sentiment endpoints, health checks and metrics.
func NewRouter(h *Handler, hc *health.Handler, logger *utils.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogging(logger))
	r.Use(Recovery(logger))
	r.Use(PrometheusMetrics(serviceName))

	hc.Mount(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Home)
	r.Post("/predict", h.Predict)
	r.Post("/api/predict", h.APIPredict)
	r.Post("/analyze", h.Analyze)

	return r
}

// NewOpsRouter serves only health checks and metrics. The crawler mounts it
// next to its scheduler loop.
func NewOpsRouter(hc *health.Handler, logger *utils.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(Recovery(logger))

	hc.Mount(r)
	r.Handle("/metrics", promhttp.Handler())
	return r
}
