package knora

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by Client and RetryingClient.
// A nil *Metrics records nothing.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestFailures *prometheus.CounterVec
	Retries         *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "knora_client_request_duration_seconds",
				Help:    "Duration of registry and asset store requests in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"service", "operation"},
		),
		RequestFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "knora_client_request_failures_total",
				Help: "Requests that failed in transport or returned a non-2xx status",
			},
			[]string{"service", "operation"},
		),
		Retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "knora_client_retries_total",
				Help: "Retries performed after a recoverable failure",
			},
			[]string{"operation"},
		),
	}

	for _, c := range []prometheus.Collector{m.RequestDuration, m.RequestFailures, m.Retries} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(service Service, operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(string(service), operation).Observe(d.Seconds())
}

func (m *Metrics) failure(service Service, operation string) {
	if m == nil {
		return
	}
	m.RequestFailures.WithLabelValues(string(service), operation).Inc()
}

func (m *Metrics) retry(operation string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(operation).Inc()
}
