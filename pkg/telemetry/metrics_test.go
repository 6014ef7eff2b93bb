package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

// mockRegisterer implements prometheus.Registerer for testing
type mockRegisterer struct {
	registerCalled   bool
	unregisterCalled bool
}

func (m *mockRegisterer) Register(c prometheus.Collector) error {
	m.registerCalled = true
	return nil
}

func (m *mockRegisterer) MustRegister(cs ...prometheus.Collector) {
	m.registerCalled = true
}

func (m *mockRegisterer) Unregister(c prometheus.Collector) bool {
	m.unregisterCalled = true
	return true
}

func TestFactory_Counter(t *testing.T) {
	counterFn := Counter("test_counter", WithDescription("Test counter"), WithLabels("label1", "label2"))
	assert.NotNil(t, counterFn)

	mockReg := &mockRegisterer{}
	f := &factory{registerer: mockReg}

	counterFn = f.Counter("test_counter", WithDescription("Test counter"), WithLabels("label1", "label2"))
	assert.NotNil(t, counterFn)
	assert.True(t, mockReg.registerCalled)
}

func TestFactory_Gauge(t *testing.T) {
	gaugeFn := Gauge("test_gauge", WithDescription("Test gauge"), WithLabels("label1", "label2"))
	assert.NotNil(t, gaugeFn)

	mockReg := &mockRegisterer{}
	f := &factory{registerer: mockReg}

	gaugeFn = f.Gauge("test_gauge", WithDescription("Test gauge"), WithLabels("label1", "label2"))
	assert.NotNil(t, gaugeFn)
	assert.True(t, mockReg.registerCalled)

	// collector-scoped gauges are tracked for per-scrape resets
	assert.Len(t, f.gauges, 1)
}

func TestFactory_ObservableGauge(t *testing.T) {
	observableFn := func() float64 { return 123.45 }
	ObservableGauge("test_observable", observableFn, WithDescription("Test observable gauge"))

	mockReg := &mockRegisterer{}
	f := &factory{registerer: mockReg}

	f.ObservableGauge("test_observable", observableFn, WithDescription("Test observable gauge"))
	assert.True(t, mockReg.registerCalled)
}

func TestFactory_ObservableGauge_PanicsWithLabels(t *testing.T) {
	observableFn := func() float64 { return 123.45 }

	assert.Panics(t, func() {
		ObservableGauge("test_observable", observableFn, WithLabels("label1", "label2"))
	})
}

func TestSnakeCase(t *testing.T) {
	assert.Equal(t, "foo_bar_baz", SnakeCase("foo", "bar", "baz"))
	assert.Equal(t, "foo_bar", SnakeCase("foo", "", "bar", ""))
}
