package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Chat turn metrics
	Turns       prometheus.Counter
	TurnLatency prometheus.Histogram

	// Resolver decisions by kind
	Decisions *prometheus.CounterVec

	// Tool gateway calls by tool and status
	ToolCalls *prometheus.CounterVec

	// Store health (1 = reachable, 0 = unreachable)
	StoreUp prometheus.Gauge
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		Turns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taskchat_turns_total",
			Help: "Total number of chat turns processed",
		}),

		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskchat_turn_duration_seconds",
			Help:    "Chat turn latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),

		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taskchat_resolver_decisions_total",
			Help: "Total resolver decisions by kind",
		}, []string{"kind"}),

		ToolCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taskchat_tool_calls_total",
			Help: "Total tool gateway calls by tool and status",
		}, []string{"tool", "status"}),

		StoreUp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "taskchat_store_up",
			Help: "Whether the task/conversation store is reachable (1) or not (0)",
		}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance (nil until InitMetrics)
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordTurn records one processed chat turn
func (m *Metrics) RecordTurn() {
	m.Turns.Inc()
}

// RecordTurnLatency records chat turn latency
func (m *Metrics) RecordTurnLatency(seconds float64) {
	m.TurnLatency.Observe(seconds)
}

// RecordDecision records a resolver decision
func (m *Metrics) RecordDecision(kind string) {
	m.Decisions.WithLabelValues(kind).Inc()
}

// RecordToolCall records a tool gateway call
func (m *Metrics) RecordToolCall(tool, status string) {
	m.ToolCalls.WithLabelValues(tool, status).Inc()
}

// RecordStoreHealth records the store reachability probe result
func (m *Metrics) RecordStoreHealth(up bool) {
	if up {
		m.StoreUp.Set(1)
	} else {
		m.StoreUp.Set(0)
	}
}
