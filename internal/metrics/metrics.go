// Package metrics is the process-wide Prometheus registry: request
// counts/latencies at the facade, fetch counts at the data switch, and
// per-flag counters at the harness.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the full set of gauges/counters/histograms the service emits.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	FetchesTotal   *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
	StepsRunTotal  *prometheus.CounterVec
	StepDuration   *prometheus.HistogramVec
	FlagsTotal     *prometheus.CounterVec
	ChannelBlocked *prometheus.CounterVec

	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics registers every collector under namespace/subsystem.
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "requests_total", Help: "Total number of Validate requests.",
			},
			[]string{"status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "request_duration_seconds", Help: "Duration of a full Validate stream.",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"pipeline"},
		),
		RequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "requests_in_flight", Help: "Validate requests currently streaming.",
			},
		),
		FetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "fetches_total", Help: "Total number of DataSwitch fetches.",
			},
			[]string{"source", "status"},
		),
		FetchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "fetch_duration_seconds", Help: "Duration of a single DataSwitch fetch.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"source"},
		),
		StepsRunTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "steps_run_total", Help: "Total number of pipeline steps run.",
			},
			[]string{"pipeline", "status"},
		),
		StepDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "step_duration_seconds", Help: "Duration of a single pipeline step.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"check_kind"},
		),
		FlagsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "flags_total", Help: "Total number of flagged points emitted, by flag.",
			},
			[]string{"flag"},
		),
		ChannelBlocked: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "channel_send_aborted_total", Help: "Driver exits from a cancelled context while sending.",
			},
			[]string{"pipeline"},
		),
		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace, Subsystem: subsystem,
				Name: "service_info", Help: "Service build information.",
			},
			[]string{"version"},
		),
	}
	defaultMetrics = m
	return m
}

// Get returns the installed metrics, initializing a default set on
// first use so callers never see a nil pointer.
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("rove", "")
	}
	return defaultMetrics
}

// RecordRequest records one completed Validate stream.
func (m *Metrics) RecordRequest(pipeline, status string, d time.Duration) {
	m.RequestsTotal.WithLabelValues(status).Inc()
	m.RequestDuration.WithLabelValues(pipeline).Observe(d.Seconds())
}

// RecordFetch records one DataSwitch.FetchData call.
func (m *Metrics) RecordFetch(source, status string, d time.Duration) {
	m.FetchesTotal.WithLabelValues(source, status).Inc()
	m.FetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// RecordStep records one harness.RunStep call and its emitted flags.
func (m *Metrics) RecordStep(pipelineName, checkKind, status string, d time.Duration, flagCounts map[string]int) {
	m.StepsRunTotal.WithLabelValues(pipelineName, status).Inc()
	m.StepDuration.WithLabelValues(checkKind).Observe(d.Seconds())
	for flagName, count := range flagCounts {
		m.FlagsTotal.WithLabelValues(flagName).Add(float64(count))
	}
}

// RecordChannelAbort records the driver exiting early because the
// caller's context was cancelled mid-send.
func (m *Metrics) RecordChannelAbort(pipeline string) {
	m.ChannelBlocked.WithLabelValues(pipeline).Inc()
}

// SetServiceInfo publishes the running build's version as a gauge.
func (m *Metrics) SetServiceInfo(version string) {
	m.ServiceInfo.WithLabelValues(version).Set(1)
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler { return promhttp.Handler() }

// StartMetricsServer runs a blocking HTTP server exposing /metrics.
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}
