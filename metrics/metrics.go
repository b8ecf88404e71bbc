// Package metrics exports handle table activity as prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wippyai/wrenit/resource"
)

// Collector counts resource table events per namespace and tracks the
// number of live entries. Attach it through wren.Config.Observers and
// wren.ObserveVMs, then register it with a prometheus registry.
type Collector struct {
	events *prometheus.CounterVec
	live   *prometheus.GaugeVec
}

var (
	_ resource.Observer    = (*Collector)(nil)
	_ prometheus.Collector = (*Collector)(nil)
)

// New returns a collector whose metric names start with namespace.
func New(namespace string) *Collector {
	c := &Collector{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resource_events_total",
				Help:      "Resource table events by namespace and type",
			},
			[]string{"namespace", "event"},
		),
		live: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "resource_live",
				Help:      "Live resource table entries by namespace",
			},
			[]string{"namespace"},
		),
	}
	for _, ns := range resource.Namespaces() {
		c.live.WithLabelValues(ns.String())
	}
	return c
}

func (c *Collector) OnResourceEvent(e resource.Event) {
	ns := e.Namespace.String()
	c.events.WithLabelValues(ns, e.Type.String()).Inc()
	switch e.Type {
	case resource.EventCreated:
		c.live.WithLabelValues(ns).Inc()
	case resource.EventDropped, resource.EventReplaced:
		c.live.WithLabelValues(ns).Dec()
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.events.Describe(ch)
	c.live.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.events.Collect(ch)
	c.live.Collect(ch)
}
