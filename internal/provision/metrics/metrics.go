// Package metrics exposes the service's prometheus collectors. Detection
// latency buckets are sized around the 200ms/500ms p95/p99 targets so the
// contract is visible on a dashboard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provision_detections_total",
			Help: "Total orphan detection runs by outcome",
		},
		[]string{"outcome"}, // "valid", "orphaned", "failed"
	)

	DetectionAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "provision_detection_attempts",
			Help:    "Attempts consumed per detection run",
			Buckets: []float64{1, 2, 3},
		},
	)

	DetectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "provision_detection_duration_seconds",
			Help:    "Wall-clock duration of detection runs across all attempts",
			Buckets: []float64{0.025, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2},
		},
	)

	OrphansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provision_orphans_total",
			Help: "Orphaned identities found at login by classification",
		},
		[]string{"type"},
	)

	RegistrationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provision_registration_transitions_total",
			Help: "Registration state machine transitions by target phase",
		},
		[]string{"phase"},
	)

	RegistrationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provision_registration_failures_total",
			Help: "Failed registration attempts by classified error code",
		},
		[]string{"code"},
	)

	CleanupInitiations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provision_cleanup_initiations_total",
			Help: "Cleanup bridge dispatches by outcome",
		},
		[]string{"outcome"}, // "dispatched", "rejected", "disabled", "error"
	)
)
