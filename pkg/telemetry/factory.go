package telemetry

import "github.com/prometheus/client_golang/prometheus"

var defaultRegisterer = prometheus.DefaultRegisterer

// Factory produces metrics bound to a registerer.
type Factory interface {
	Counter(name string, opts ...Option) CounterFn
	Gauge(name string, opts ...Option) GaugeFn
	ObservableGauge(name string, fn func() float64, opts ...Option)
}

type factory struct {
	registerer prometheus.Registerer

	// gauges created for collector-scoped factories, reset on scrape
	gauges []*prometheus.GaugeVec
}

// Counter registers a counter on the default registry.
func Counter(name string, opts ...Option) CounterFn {
	return (&factory{registerer: defaultRegisterer}).Counter(name, opts...)
}

// Gauge registers a gauge on the default registry.
func Gauge(name string, opts ...Option) GaugeFn {
	return (&factory{registerer: defaultRegisterer}).Gauge(name, opts...)
}

// ObservableGauge registers a callback gauge on the default registry.
func ObservableGauge(name string, fn func() float64, opts ...Option) {
	(&factory{registerer: defaultRegisterer}).ObservableGauge(name, fn, opts...)
}
