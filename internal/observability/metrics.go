// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Evaluation metrics
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationErrors   *prometheus.CounterVec
	ActionsTotal       *prometheus.CounterVec
	EvaluationLatency  *prometheus.HistogramVec
	CorrelationFailures prometheus.Counter

	// Dispatch metrics
	OrdersDispatched *prometheus.CounterVec
	DispatchErrors   *prometheus.CounterVec
	DispatchLatency  *prometheus.HistogramVec

	// Risk metrics
	StopLossActivations *prometheus.CounterVec
	KillSwitchBlocks    prometheus.Counter

	// Ingestion metrics
	ObservationsReceived prometheus.Counter
	ObservationsStored   prometheus.Counter
	FeedReconnects       prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulEvaluation prometheus.Gauge
	LastObservationTimestamp prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "futura"
	}

	return &Metrics{
		// Evaluation metrics
		EvaluationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "evaluations_total",
			Help:      "Total number of observation evaluations by branch",
		}, []string{"branch"}),
		EvaluationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "evaluation_errors_total",
			Help:      "Total number of evaluation errors by kind",
		}, []string{"kind"}),
		ActionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "actions_total",
			Help:      "Total number of decided actions by type",
		}, []string{"action"}),
		EvaluationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "evaluation_duration_seconds",
			Help:      "Time taken to evaluate one observation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		CorrelationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "correlation_failures_total",
			Help:      "Total number of failed correlation series assemblies",
		}),

		// Dispatch metrics
		OrdersDispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "orders_total",
			Help:      "Total number of dispatched orders by side",
		}, []string{"side"}),
		DispatchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "errors_total",
			Help:      "Total number of dispatch errors by side",
		}, []string{"side"}),
		DispatchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Time taken to dispatch one order",
			Buckets:   prometheus.DefBuckets,
		}, []string{"side"}),

		// Risk metrics
		StopLossActivations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "stoploss_activations_total",
			Help:      "Total number of entries blocked by a stop-loss gate",
		}, []string{"range"}),
		KillSwitchBlocks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "kill_switch_blocks_total",
			Help:      "Total number of evaluations refused by the kill switch",
		}),

		// Ingestion metrics
		ObservationsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "observations_received_total",
			Help:      "Total number of sentiment observations received",
		}),
		ObservationsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "observations_stored_total",
			Help:      "Total number of observations stored to history",
		}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "feed_reconnects_total",
			Help:      "Total number of sentiment feed reconnections",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulEvaluation: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_evaluation_timestamp",
			Help:      "Unix timestamp of last successful evaluation",
		}),
		LastObservationTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_observation_timestamp",
			Help:      "Observation timestamp of the most recent feed message",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEvaluation increments the evaluation counter for a branch.
func RecordEvaluation(branch string) {
	DefaultMetrics.EvaluationsTotal.WithLabelValues(branch).Inc()
}

// RecordAction increments the action counter for a decided action type.
func RecordAction(action string) {
	DefaultMetrics.ActionsTotal.WithLabelValues(action).Inc()
}

// RecordEvaluationError increments the evaluation error counter for an error kind.
func RecordEvaluationError(kind string) {
	DefaultMetrics.EvaluationErrors.WithLabelValues(kind).Inc()
}

// RecordDispatch increments the dispatched order counter for a side.
func RecordDispatch(side string) {
	DefaultMetrics.OrdersDispatched.WithLabelValues(side).Inc()
}

// RecordDispatchError increments the dispatch error counter for a side.
func RecordDispatchError(side string) {
	DefaultMetrics.DispatchErrors.WithLabelValues(side).Inc()
}

// RecordStopLoss increments the stop-loss activation counter for a range.
func RecordStopLoss(rangeKind string) {
	DefaultMetrics.StopLossActivations.WithLabelValues(rangeKind).Inc()
}
