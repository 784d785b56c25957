package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Degradation reasons.
const (
	reasonUnconfigured    = "unconfigured"
	reasonAgentError      = "agent_error"
	reasonEmptyExtraction = "empty_extraction"
	reasonParseFailed     = "parse_failed"
	reasonPanic           = "panic"
)

var (
	// callsTotal counts remote agent calls by provider and status
	// ("ok", "error", "timeout").
	callsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartclip",
			Subsystem: "agent",
			Name:      "calls_total",
			Help:      "Remote agent calls.",
		},
		[]string{"provider", "status"},
	)

	callDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "smartclip",
			Subsystem: "agent",
			Name:      "call_duration_seconds",
			Help:      "Duration of remote agent calls in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "status"},
	)

	tokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartclip",
			Subsystem: "agent",
			Name:      "tokens_total",
			Help:      "Tokens reported by the remote agent.",
		},
		[]string{"provider", "direction"},
	)

	// degradationsTotal counts turns answered by keyword matching.
	degradationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartclip",
			Subsystem: "pipeline",
			Name:      "degradations_total",
			Help:      "Turns classified by keyword fallback, by reason.",
		},
		[]string{"reason"},
	)

	repairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartclip",
			Subsystem: "payload",
			Name:      "repairs_total",
			Help:      "Payload repair attempts by outcome (recovered, failed).",
		},
		[]string{"outcome"},
	)

	schemaMismatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartclip",
			Subsystem: "payload",
			Name:      "schema_mismatch_total",
			Help:      "Decoded payloads that did not match the schema of their shape.",
		},
		[]string{"shape"},
	)
)
