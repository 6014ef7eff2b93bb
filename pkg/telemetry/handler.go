package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the HTTP handler serving the default metrics registry
func Handler() http.Handler {
	return promhttp.Handler()
}
