// Package metrics records the outcome and latency of webmail operations
// in Prometheus format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shineum/webmail-driver/internal/provider"
)

// outcomeOK labels operations that returned no error.
const outcomeOK = "ok"

// Recorder is the interface the client facade reports operations through.
type Recorder interface {
	RecordOperation(providerName, op string, d time.Duration, err error)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webmail_operations_total",
			Help: "Webmail operations by provider, operation and outcome.",
		}, []string{"provider", "op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "webmail_operation_duration_seconds",
			Help:    "Wall time of webmail operations, browser launch included.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"provider", "op"}),
	}

	reg.MustRegister(c.operations, c.duration)
	return c
}

// RecordOperation counts one operation. Failed operations are labelled
// with their error kind.
func (c *Collector) RecordOperation(providerName, op string, d time.Duration, err error) {
	c.operations.WithLabelValues(providerName, op, Outcome(err)).Inc()
	c.duration.WithLabelValues(providerName, op).Observe(d.Seconds())
}

// Outcome returns the outcome label for err.
func Outcome(err error) string {
	if err == nil {
		return outcomeOK
	}
	return provider.KindOf(err).String()
}

// WriteTextfile writes every metric gathered by g to path in the text
// exposition format, for node_exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// Nop discards every record.
type Nop struct{}

func (Nop) RecordOperation(string, string, time.Duration, error) {}
