// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package metrics exposes Prometheus instrumentation for Sentinel.
//
// Collectors are registered on the default registry via promauto and served
// by promhttp at /metrics. Callers use the Record* helpers rather than the
// collectors directly so label sets stay consistent.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Detection and enforcement
	DetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anticheat_detections_total",
			Help: "Detector verdicts raised from telemetry",
		},
		[]string{"type"},
	)

	ViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anticheat_violations_total",
			Help: "Violations recorded, by type and escalation action",
		},
		[]string{"type", "action"},
	)

	BansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anticheat_bans_total",
			Help: "Ban requests by scope and outcome (created, existing)",
		},
		[]string{"ban_type", "outcome"},
	)

	KicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anticheat_kicks_total",
			Help: "Session terminations by result (ok, partial)",
		},
		[]string{"result"},
	)

	PresenceChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anticheat_presence_checks_total",
			Help: "Presence verifications by result",
		},
		[]string{"result"},
	)

	ExpiredBansTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "anticheat_expired_bans_total",
			Help: "Bans deactivated by the expiry sweeper",
		},
	)

	SweepLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "anticheat_sweep_last_success_timestamp",
			Help: "Unix time of the last successful expiry sweep",
		},
	)

	TrackedPlayers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "anticheat_tracked_players",
			Help: "Accounts with in-memory telemetry windows",
		},
	)

	StoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anticheat_store_duration_seconds",
			Help:    "Duration of violation and ban store operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anticheat_store_errors_total",
			Help: "Failed store operations",
		},
		[]string{"operation"},
	)

	// Telemetry ingestion
	TelemetryMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_messages_total",
			Help: "Telemetry messages handled, by topic and result (processed, invalid, failed)",
		},
		[]string{"topic", "result"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "API requests currently in flight",
		},
	)

	// WebSocket
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Open game client websocket connections",
		},
	)

	// Circuit Breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"},
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordDetection counts a detector verdict.
func RecordDetection(violationType string) {
	DetectionsTotal.WithLabelValues(violationType).Inc()
}

// RecordViolation counts a persisted violation and the action it produced.
func RecordViolation(violationType, action string) {
	ViolationsTotal.WithLabelValues(violationType, action).Inc()
}

// RecordBan counts a ban request. created is false when an existing ban was returned.
func RecordBan(banType string, created bool) {
	outcome := "existing"
	if created {
		outcome = "created"
	}
	BansTotal.WithLabelValues(banType, outcome).Inc()
}

// RecordKick counts a session termination attempt.
func RecordKick(ok bool) {
	result := "ok"
	if !ok {
		result = "partial"
	}
	KicksTotal.WithLabelValues(result).Inc()
}

// RecordPresenceCheck counts a presence verification outcome.
func RecordPresenceCheck(result string) {
	PresenceChecksTotal.WithLabelValues(result).Inc()
}

// RecordSweep records a completed expiry sweep.
func RecordSweep(deactivated int64) {
	ExpiredBansTotal.Add(float64(deactivated))
	SweepLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordStoreOperation records store latency and failures.
func RecordStoreOperation(operation string, duration time.Duration, err error) {
	StoreDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreErrors.WithLabelValues(operation).Inc()
	}
}

// RecordTelemetry counts a handled telemetry message.
func RecordTelemetry(topic, result string) {
	TelemetryMessages.WithLabelValues(topic, result).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}
