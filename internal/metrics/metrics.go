// Package metrics exposes the assistant's Prometheus instruments.
// Everything is registered on the default registry and served by the
// dashboard at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TurnsTotal counts completed conversation turns by outcome:
	// ok, degraded, fallback, error.
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aria",
		Subsystem: "conversation",
		Name:      "turns_total",
		Help:      "Completed conversation turns by outcome.",
	}, []string{"outcome"})

	// ToolCallsTotal counts tool invocations by tool name and outcome:
	// ok, unknown, invalid, error.
	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aria",
		Subsystem: "tools",
		Name:      "calls_total",
		Help:      "Tool invocations by tool and outcome.",
	}, []string{"tool", "outcome"})

	// ModelRoundTrips counts chat-completion requests per turn round.
	ModelRoundTrips = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aria",
		Subsystem: "llm",
		Name:      "round_trips_total",
		Help:      "Chat completion requests issued.",
	})

	// ModelLatency observes chat-completion latency in seconds.
	ModelLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "aria",
		Subsystem: "llm",
		Name:      "request_duration_seconds",
		Help:      "Chat completion request latency.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	// VoiceStageDuration observes latency of the voice pipeline stages:
	// record, transcribe, synthesize, play.
	VoiceStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "aria",
		Subsystem: "voice",
		Name:      "stage_duration_seconds",
		Help:      "Voice pipeline stage latency.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"stage"})

	// RemindersTotal counts reminder runs by outcome: ok, error.
	RemindersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aria",
		Subsystem: "reminders",
		Name:      "runs_total",
		Help:      "Reminder scheduler runs by outcome.",
	}, []string{"outcome"})
)

// Turn outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)
