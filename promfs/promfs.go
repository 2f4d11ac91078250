// Package promfs exports imagefs operation metrics to Prometheus.
//
// Collector implements imagefs.MetricsCollector on top of
// prometheus/client_golang; register it with the constructor option:
//
//	reg := prometheus.NewRegistry()
//	fs, _ := imagefs.Open("./disk.img",
//	    imagefs.WithMetricsCollector(promfs.NewCollector(reg)))
package promfs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "imagefs"

// Collector bridges imagefs operation callbacks onto Prometheus metrics.
type Collector struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	ioBytes    *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
// Passing nil registers with the default registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Filesystem operations by operation, kind and status.",
		}, []string{"op", "kind", "status"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Operation latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		ioBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "io_bytes_total",
			Help:      "Bytes read and newly accounted bytes written.",
		}, []string{"op"}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (c *Collector) record(op, kind string, duration time.Duration, err error) {
	c.operations.WithLabelValues(op, kind, status(err)).Inc()
	c.durations.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordCreate implements imagefs.MetricsCollector.
func (c *Collector) RecordCreate(kind string, duration time.Duration, err error) {
	c.record("create", kind, duration, err)
}

// RecordDelete implements imagefs.MetricsCollector.
func (c *Collector) RecordDelete(kind string, duration time.Duration, err error) {
	c.record("delete", kind, duration, err)
}

// RecordStructural implements imagefs.MetricsCollector.
func (c *Collector) RecordStructural(op string, duration time.Duration, err error) {
	c.record(op, "tree", duration, err)
}

// RecordRead implements imagefs.MetricsCollector.
func (c *Collector) RecordRead(n int, duration time.Duration, err error) {
	c.record("read", "io", duration, err)
	c.ioBytes.WithLabelValues("read").Add(float64(n))
}

// RecordWrite implements imagefs.MetricsCollector.
func (c *Collector) RecordWrite(n int, duration time.Duration, err error) {
	c.record("write", "io", duration, err)
	c.ioBytes.WithLabelValues("write").Add(float64(n))
}

// RecordSave implements imagefs.MetricsCollector.
func (c *Collector) RecordSave(duration time.Duration, err error) {
	c.record("save", "image", duration, err)
}
