package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the webhook pipeline counters.
type Metrics struct {
	received        *prometheus.CounterVec
	rejected        *prometheus.CounterVec
	dropped         prometheus.Counter
	published       prometheus.Counter
	publishFailures prometheus.Counter
}

// NewMetrics registers the pipeline counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		received: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ltdevents",
			Subsystem: "webhook",
			Name:      "events_received_total",
			Help:      "Structurally valid webhook events received, by event type.",
		}, []string{"event_type"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ltdevents",
			Subsystem: "webhook",
			Name:      "events_rejected_total",
			Help:      "Webhook requests rejected with HTTP 400, by failure class.",
		}, []string{"reason"}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ltdevents",
			Subsystem: "webhook",
			Name:      "events_dropped_total",
			Help:      "Events accepted but not published (unmapped type or dry mode).",
		}),
		published: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ltdevents",
			Subsystem: "webhook",
			Name:      "events_published_total",
			Help:      "Events published and acknowledged by the broker.",
		}),
		publishFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ltdevents",
			Subsystem: "webhook",
			Name:      "publish_failures_total",
			Help:      "Publish attempts the broker failed to acknowledge.",
		}),
	}
}
