// Package metrics provides Prometheus metrics for simulations and jobs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TrialsTotal counts finished trials by experiment and outcome.
	TrialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "diffusion",
			Subsystem: "experiment",
			Name:      "trials_total",
			Help:      "Total number of trials by experiment and outcome",
		},
		[]string{"experiment", "outcome"}, // "succeeded", "failed"
	)

	// TrialDuration tracks the wall time of single trials.
	TrialDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "diffusion",
			Subsystem: "experiment",
			Name:      "trial_duration_seconds",
			Help:      "Trial execution duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"experiment"},
	)

	// JobsTotal counts finished jobs by final status.
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "diffusion",
			Subsystem: "service",
			Name:      "jobs_total",
			Help:      "Total number of jobs by final status",
		},
		[]string{"status"}, // "completed", "failed", "cancelled"
	)

	// JobsActive tracks currently running jobs.
	JobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "diffusion",
			Subsystem: "service",
			Name:      "jobs_active",
			Help:      "Number of currently running jobs",
		},
	)

	// JobDuration tracks job execution duration.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "diffusion",
			Subsystem: "service",
			Name:      "job_duration_seconds",
			Help:      "Job execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
		},
		[]string{"status"},
	)
)
