// Package metrics exposes Prometheus collectors for the image pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "brandstudio"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"method", "route"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage in seconds",
			Buckets:   []float64{.001, .01, .05, .1, .5, 1, 5, 15, 30, 60},
		},
		[]string{"stage"},
	)

	StageWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "warnings_total",
			Help:      "Non-fatal stage failures surfaced as warnings",
		},
		[]string{"stage", "code"},
	)

	BackendCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "calls_total",
			Help:      "Generation and matting backend calls by outcome",
		},
		[]string{"backend", "status"},
	)

	BackendCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "cost_usd_total",
			Help:      "Accumulated backend spend in USD",
		},
		[]string{"stage", "model"},
	)

	RemovalMethods = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matting",
			Name:      "method_total",
			Help:      "Background removals by method",
		},
		[]string{"method"},
	)

	RatingQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rating",
			Name:      "queue_depth",
			Help:      "Pending jobs in the background rating pool",
		},
	)

	OverallScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rating",
			Name:      "overall_score",
			Help:      "Distribution of overall quality scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		},
	)
)

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, started time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// BackendCall counts one backend attempt.
func BackendCall(backend string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	BackendCalls.WithLabelValues(backend, status).Inc()
}

// AddCost accumulates spend for a stage and model.
func AddCost(stage, model string, usd float64) {
	if usd <= 0 {
		return
	}
	BackendCostUSD.WithLabelValues(stage, model).Add(usd)
}

// HTTPRequest records a served request.
func HTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
