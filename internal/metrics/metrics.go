// Package metrics exposes prometheus collectors for the monitored item engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "uamonitor"

// Metrics groups the collectors updated by monitored items.
type Metrics struct {
	ItemsLive        prometheus.Gauge
	Notifications    *prometheus.CounterVec
	Overflows        prometheus.Counter
	SamplingErrors   prometheus.Counter
	SkippedTicks     prometheus.Counter
	ExtractedBatches prometheus.Counter
	FilterRejections *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ItemsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitored_items",
			Help:      "Number of monitored items currently registered.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_enqueued_total",
			Help:      "Notifications pushed into monitored item queues.",
		}, []string{"kind"}),
		Overflows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_overflows_total",
			Help:      "Notifications dropped or overwritten because a queue was full.",
		}),
		SamplingErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sampling_errors_total",
			Help:      "Sampling function failures.",
		}),
		SkippedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sampling_ticks_skipped_total",
			Help:      "Ticks skipped because the previous sample was still in flight.",
		}),
		ExtractedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Non-empty notification extractions.",
		}),
		FilterRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_rejections_total",
			Help:      "Create or modify requests refused because of an invalid filter.",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.ItemsLive,
			m.Notifications,
			m.Overflows,
			m.SamplingErrors,
			m.SkippedTicks,
			m.ExtractedBatches,
			m.FilterRejections,
		)
	}
	return m
}
