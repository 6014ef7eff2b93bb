package telemetry

import (
	"slices"
	"strings"
)

// CounterFn increments a counter, accepting optional label values.
type CounterFn func(float64, ...string)

// GaugeFn sets a gauge value, accepting optional label values.
type GaugeFn func(float64, ...string)

type metricOptions struct {
	description string
	labels      []string
}

// help returns the configured description, or the fallback when none was set.
func (o *metricOptions) help(fallback string) string {
	if o.description != "" {
		return o.description
	}
	return fallback
}

// Option configures a metric at registration time.
type Option func(*metricOptions)

func applyOptions(opts []Option) *metricOptions {
	mo := &metricOptions{}
	for _, opt := range opts {
		opt(mo)
	}
	return mo
}

// WithDescription sets the help text for the metric.
func WithDescription(description string) Option {
	return func(o *metricOptions) {
		o.description = description
	}
}

// WithLabels sets the label names for the metric.
func WithLabels(labels ...string) Option {
	return func(o *metricOptions) {
		o.labels = labels
	}
}

// SnakeCase joins non empty string segments with underscores.
func SnakeCase(segments ...string) string {
	segments = slices.DeleteFunc(segments, func(s string) bool {
		return s == ""
	})
	return strings.Join(segments, "_")
}
