package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(router *mux.Router, handlers *Handlers) {
	api := router.PathPrefix("/api/v1").Subrouter()

	// Experiment job endpoints
	experiments := api.PathPrefix("/experiments").Subrouter()
	experiments.HandleFunc("", handlers.SubmitExperiment).Methods("POST")
	experiments.HandleFunc("", handlers.ListExperiments).Methods("GET")
	experiments.HandleFunc("/{jobId}", handlers.GetExperiment).Methods("GET")
	experiments.HandleFunc("/{jobId}/result", handlers.GetExperimentResult).Methods("GET")
	experiments.HandleFunc("/{jobId}/cancel", handlers.CancelExperiment).Methods("POST")

	api.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	api.HandleFunc("/strategies", handlers.ListStrategies).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// NewRouter wires routes, middleware and the CORS policy
func NewRouter(handlers *Handlers, allowedOrigins []string) http.Handler {
	router := mux.NewRouter()
	SetupRoutes(router, handlers)

	router.Use(LoggingMiddleware)
	router.Use(RecoveryMiddleware)

	return NewCORS(allowedOrigins).Handler(router)
}
