package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector batches metric collection. Register is called once at
// registration; all metrics must be created through the provided Factory,
// not the package-level helpers. On every scrape, Collect is signaled and
// the collector must synchronously set the latest values on its metrics.
type Collector interface {
	Register(Factory)
	Collect()
}

// RegisterCollector registers a collector with the default registry.
func RegisterCollector(c Collector) {
	registerCollector(c, defaultRegisterer)
}

func registerCollector(c Collector, registerer prometheus.Registerer) {
	// the collector gets a private registry so its gauges can be reset per
	// scrape without touching unrelated metrics
	registry := prometheus.NewRegistry()
	f := &factory{registerer: registry}

	c.Register(f)

	registerer.MustRegister(&collectorBridge{
		inner:    c,
		registry: registry,
		factory:  f,
	})
}

// collectorBridge adapts Collector to prometheus.Collector.
type collectorBridge struct {
	inner    Collector
	registry *prometheus.Registry
	factory  *factory
}

// Describe implements prometheus.Collector.
func (b *collectorBridge) Describe(ch chan<- *prometheus.Desc) {
	b.registry.Describe(ch)
}

// Collect implements prometheus.Collector.
func (b *collectorBridge) Collect(ch chan<- prometheus.Metric) {
	for _, gauge := range b.factory.gauges {
		gauge.Reset()
	}

	b.inner.Collect()
	b.registry.Collect(ch)
}
