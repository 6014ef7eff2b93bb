package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMux(ready bool) *http.ServeMux {
	s := NewServer("127.0.0.1:0", zap.NewNop(),
		func() bool { return ready },
		WithIdentity("host-1", "instance-1"),
	)

	mux := http.NewServeMux()
	s.setupRoutes(mux)
	return mux
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name     string
		ready    bool
		wantCode int
		wantBody string
	}{
		{name: "ready", ready: true, wantCode: http.StatusOK, wantBody: "ready"},
		{name: "not ready", ready: false, wantCode: http.StatusServiceUnavailable, wantBody: "not ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestMux(tt.ready).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestMux(true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", rec.Body.String())
}

func TestStatusz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestMux(true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/statusz", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "host-1", body["host_id"])
	assert.Equal(t, "instance-1", body["instance_id"])
	assert.NotEmpty(t, body["version"])
}
