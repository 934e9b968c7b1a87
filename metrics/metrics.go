// Package metrics provides the Prometheus collectors for the call relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agentbridge"

var (
	// sessionsActive is a gauge of calls currently relayed.
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of calls currently relayed",
		},
	)

	// sessionsTotal counts finished sessions by how they ended.
	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of finished sessions",
		},
		[]string{"reason"}, // reason: stopped, transport, decode, shutdown
	)

	// sessionDuration is a histogram of call length.
	sessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of relayed calls in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	// framesTotal counts audio frames forwarded per direction.
	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_total",
			Help:      "Total number of audio frames forwarded",
		},
		[]string{"direction"}, // direction: to_agent, to_caller
	)

	// bargeInsTotal counts clear events sent to Twilio.
	bargeInsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "barge_ins_total",
			Help:      "Total number of barge-in clear events sent to the caller leg",
		},
	)

	// functionCallDuration is a histogram of function dispatch duration.
	functionCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "function_call_duration_seconds",
			Help:      "Duration of agent function calls in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"function"},
	)

	// functionCallsTotal counts function calls by outcome.
	functionCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "function_calls_total",
			Help:      "Total number of agent function calls",
		},
		[]string{"function", "status"}, // status: success, error
	)

	allMetrics = []prometheus.Collector{
		sessionsActive,
		sessionsTotal,
		sessionDuration,
		framesTotal,
		bargeInsTotal,
		functionCallDuration,
		functionCallsTotal,
	}
)

// Frame directions
const (
	DirectionToAgent  = "to_agent"
	DirectionToCaller = "to_caller"
)

// NewRegistry returns a registry holding the relay collectors plus the Go
// runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	for _, c := range allMetrics {
		reg.MustRegister(c)
	}
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// RecordSessionStart records a session entering the relay.
func RecordSessionStart() {
	sessionsActive.Inc()
}

// RecordSessionEnd records a session leaving the relay.
func RecordSessionEnd(reason string, durationSeconds float64) {
	sessionsActive.Dec()
	sessionsTotal.WithLabelValues(reason).Inc()
	sessionDuration.Observe(durationSeconds)
}

// RecordFrame records one forwarded audio frame.
func RecordFrame(direction string) {
	framesTotal.WithLabelValues(direction).Inc()
}

// RecordBargeIn records a clear event sent to the caller leg.
func RecordBargeIn() {
	bargeInsTotal.Inc()
}

// RecordFunctionCall records one dispatched function call.
func RecordFunctionCall(function, status string, durationSeconds float64) {
	functionCallDuration.WithLabelValues(function).Observe(durationSeconds)
	functionCallsTotal.WithLabelValues(function, status).Inc()
}
