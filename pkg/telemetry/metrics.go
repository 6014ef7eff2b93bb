package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counter registers a counter and returns an increment function.
func (f *factory) Counter(name string, opts ...Option) CounterFn {
	mo := applyOptions(opts)

	counter := promauto.With(f.registerer).NewCounterVec(prometheus.CounterOpts{
		Name: name + "_total",
		Help: mo.help("Counter for " + name),
	}, mo.labels)

	return func(value float64, labels ...string) {
		counter.WithLabelValues(labels...).Add(value)
	}
}

// Gauge registers a gauge and returns a set function.
func (f *factory) Gauge(name string, opts ...Option) GaugeFn {
	mo := applyOptions(opts)

	gauge := promauto.With(f.registerer).NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: mo.help("Gauge for " + name),
	}, mo.labels)

	if f.registerer != defaultRegisterer {
		// gauges on collector-scoped factories are reset on every scrape so
		// label values that stop being set do not linger in the export
		f.gauges = append(f.gauges, gauge)
	}

	return func(value float64, labels ...string) {
		gauge.WithLabelValues(labels...).Set(value)
	}
}

// ObservableGauge registers a gauge whose value is computed by a callback at
// scrape time.
func (f *factory) ObservableGauge(name string, fn func() float64, opts ...Option) {
	mo := applyOptions(opts)
	if len(mo.labels) > 0 {
		panic("ObservableGauge does not support labels")
	}

	promauto.With(f.registerer).NewGaugeFunc(prometheus.GaugeOpts{
		Name: name,
		Help: mo.help("Observable gauge for " + name),
	}, fn)
}
