package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics records vendor dispatch outcomes per mobile network.
type DispatchMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	retries  *prometheus.CounterVec
}

// NewDispatchMetrics registers the vendor dispatch metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vendor_dispatch_duration_seconds",
		Help:    "Duration of vendor purchase calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"network"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendor_dispatch_success",
		Help: "Vendor purchases accepted by the upstream gateway.",
	}, []string{"network"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendor_dispatch_failure",
		Help: "Vendor purchases that failed after all attempts.",
	}, []string{"network"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendor_dispatch_retries",
		Help: "Vendor purchase attempts beyond the first.",
	}, []string{"network"})
	reg.MustRegister(duration, success, failure, retries)
	return &DispatchMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		retries:  retries,
	}
}

// ObserveDuration records how long a purchase call took for the network.
func (d *DispatchMetrics) ObserveDuration(network string, duration time.Duration) {
	if d == nil || d.duration == nil {
		return
	}
	d.duration.WithLabelValues(normalizeLabel(network)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the network.
func (d *DispatchMetrics) IncSuccess(network string) {
	if d == nil || d.success == nil {
		return
	}
	d.success.WithLabelValues(normalizeLabel(network)).Inc()
}

// IncFailure increments the failure counter for the network.
func (d *DispatchMetrics) IncFailure(network string) {
	if d == nil || d.failure == nil {
		return
	}
	d.failure.WithLabelValues(normalizeLabel(network)).Inc()
}

// IncRetry increments the retry counter for the network.
func (d *DispatchMetrics) IncRetry(network string) {
	if d == nil || d.retries == nil {
		return
	}
	d.retries.WithLabelValues(normalizeLabel(network)).Inc()
}

func normalizeLabel(network string) string {
	if network == "" {
		return "unknown"
	}
	return network
}
