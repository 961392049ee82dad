package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	metrics *Metrics
)

// SetGlobal installs m as the collector set used by the package
// functions. A nil m disables collection.
func SetGlobal(m *Metrics) {
	metrics = m
}

type Gauge interface {
	Inc()
	Dec()
	Add(float64)
	Set(float64)
}

type Counter interface {
	Inc()
	Add(float64)
}

type Observer interface {
	Observe(float64)
}

type Metrics struct {
	connected       *prometheus.GaugeVec
	requests        *prometheus.CounterVec
	requestSeconds  *prometheus.HistogramVec
	connectAttempts *prometheus.CounterVec
	responseBytes   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg, or with
// the default registerer if reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		connected: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "uplink_connected",
				Help: "Whether a connection to the server is open",
			},
			[]string{"host"}),

		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uplink_requests_total",
				Help: "Total number of requests by result status",
			},
			[]string{"host", "status"}),

		requestSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "uplink_request_duration_seconds",
				Help: "Distribution of request latencies",
				Buckets: []float64{
					.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30, 60,
				},
			},
			[]string{"host"}),
		connectAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uplink_connect_attempts_total",
				Help: "Total number of connect attempts by path kind and result",
			},
			[]string{"host", "kind", "result"}),
		responseBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uplink_response_bytes_total",
				Help: "Total response body size in bytes",
			},
			[]string{"host"}),
	}
	reg.MustRegister(m.connected)
	reg.MustRegister(m.requests)
	reg.MustRegister(m.requestSeconds)
	reg.MustRegister(m.connectAttempts)
	reg.MustRegister(m.responseBytes)
	return m
}

func Connected(host string) Gauge {
	if metrics == nil || metrics.connected == nil {
		return nilGauge
	}
	return metrics.connected.
		With(prometheus.Labels{
			"host": host,
		})
}

// Requests counts finished requests. status is the HTTP status code, or
// a short error kind when no response was received.
func Requests(host, status string) Counter {
	if metrics == nil || metrics.requests == nil {
		return nilCounter
	}

	return metrics.requests.
		With(prometheus.Labels{
			"host":   host,
			"status": status,
		})
}

func RequestSeconds(host string) Observer {
	if metrics == nil || metrics.requestSeconds == nil {
		return nilObserver
	}
	return metrics.requestSeconds.
		With(prometheus.Labels{
			"host": host,
		})
}

// ConnectAttempts counts attempts to open a connection over one path.
// kind is direct, relay or proxy; result is ok or failed.
func ConnectAttempts(host, kind, result string) Counter {
	if metrics == nil || metrics.connectAttempts == nil {
		return nilCounter
	}
	return metrics.connectAttempts.
		With(prometheus.Labels{
			"host":   host,
			"kind":   kind,
			"result": result,
		})
}

func ResponseBytes(host string) Counter {
	if metrics == nil || metrics.responseBytes == nil {
		return nilCounter
	}
	return metrics.responseBytes.
		With(prometheus.Labels{
			"host": host,
		})
}
