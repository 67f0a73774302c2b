// Package metrics exposes pipeline counters on a private Prometheus registry.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medical-alert-service/internal/channels"
	"medical-alert-service/internal/models"
)

const namespace = "medical"

type Collector struct {
	registry *prometheus.Registry

	Alerts          *prometheus.CounterVec
	Deliveries      *prometheus.CounterVec
	MonitoringPings *prometheus.CounterVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		Alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts that reached the archive, by tier and category",
		}, []string{"tier", "category"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Channel dispatch attempts, by channel and outcome",
		}, []string{"channel", "outcome"}),
		MonitoringPings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitoring_pings_total",
			Help:      "Monitoring events emitted, by priority",
		}, []string{"priority"}),
	}
	reg.MustRegister(c.Alerts, c.Deliveries, c.MonitoringPings)
	return c
}

// ObserveAlert counts an archived alert.
func (c *Collector) ObserveAlert(tier models.Tier, category string) {
	c.Alerts.WithLabelValues(tier.String(), category).Inc()
}

// ObserveDelivery implements channels.Observer.
func (c *Collector) ObserveDelivery(channel string, outcome channels.Outcome) {
	c.Deliveries.WithLabelValues(channel, string(outcome)).Inc()
}

// Publish implements monitoring.Sink so pings can be counted alongside the
// real sinks.
func (c *Collector) Publish(_ context.Context, e models.MonitoringEvent) error {
	c.MonitoringPings.WithLabelValues(e.Priority.String()).Inc()
	return nil
}

// Registry returns the underlying registry for gathering in tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
