// Package metrics records completion outcomes as Prometheus metrics.
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Collector holds the client metrics. It satisfies client.Observer.
type Collector struct {
	gatherer prometheus.Gatherer

	// RequestsTotal counts completion calls by provider, model and outcome.
	RequestsTotal *prometheus.CounterVec

	// RequestDuration records completion latency in seconds.
	RequestDuration *prometheus.HistogramVec

	// ErrorsTotal counts failed completions by error kind.
	ErrorsTotal *prometheus.CounterVec
}

// New creates a Collector registered on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c, _ := NewWithRegistry(reg, reg)
	return c
}

// NewWithRegistry creates a Collector registered on reg. gatherer is used by
// WriteText and may be nil when the caller exposes metrics some other way.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Collector, error) {
	c := &Collector{
		gatherer: gatherer,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aicommons_requests_total",
				Help: "Completion requests",
			},
			[]string{"provider", "model", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aicommons_request_duration_seconds",
				Help:    "Completion latency",
				Buckets: LLMBuckets,
			},
			[]string{"provider", "model"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aicommons_errors_total",
				Help: "Failed completions by error kind",
			},
			[]string{"provider", "kind"},
		),
	}

	for _, col := range []prometheus.Collector{c.RequestsTotal, c.RequestDuration, c.ErrorsTotal} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveCompletion records one completion call. kind is empty on success.
func (c *Collector) ObserveCompletion(provider, model string, elapsed time.Duration, kind string) {
	status := StatusOK
	if kind != "" {
		status = StatusError
		c.ErrorsTotal.WithLabelValues(provider, kind).Inc()
	}
	c.RequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.RequestDuration.WithLabelValues(provider, model).Observe(elapsed.Seconds())
}

// WriteText writes every gathered metric family in the Prometheus text format.
func (c *Collector) WriteText(w io.Writer) error {
	if c.gatherer == nil {
		return nil
	}
	families, err := c.gatherer.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
