package status

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/brandonh-msft/azure-functions-host/pkg/buildinfo"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Server exposes the host's operational endpoints: readiness, liveness,
// Prometheus metrics, pprof, and a /statusz identity summary.
type Server struct {
	listen         string
	logger         *zap.Logger
	metricsHandler http.Handler
	readyCheck     func() bool
	hostID         string
	instanceID     string

	server *http.Server
}

type Option func(*Server)

// WithMetricsHandler mounts a metrics handler at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithIdentity sets the host and instance IDs reported on /statusz.
func WithIdentity(hostID, instanceID string) Option {
	return func(s *Server) {
		s.hostID = hostID
		s.instanceID = instanceID
	}
}

func NewServer(listen string, logger *zap.Logger, readyCheck func() bool, opts ...Option) *Server {
	s := &Server{
		listen:     listen,
		logger:     logger,
		readyCheck: readyCheck,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Start() error {
	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:    s.listen,
		Handler: mux,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("unable to start status server", zap.Error(err))
		}
	}()

	s.logger.Info("status server listening", zap.String("url", "http://"+s.listen))
	return nil
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) IsReady() bool {
	return s.readyCheck()
}

func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.IsReady() {
			s.write(w, http.StatusOK, "ready")
		} else {
			s.write(w, http.StatusServiceUnavailable, "not ready")
		}
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		s.write(w, http.StatusOK, "healthy")
	})

	mux.HandleFunc("GET /statusz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]string{
			"host_id":     s.hostID,
			"instance_id": s.instanceID,
			"version":     buildinfo.Version(),
			"commit":      buildinfo.Commit(),
			"build_time":  buildinfo.BuildTime(),
		})
		if err != nil {
			s.logger.Error("failed to write response", zap.Error(err))
		}
	})

	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}

	mux.HandleFunc("GET /debug/pprof/", pprof.Index)
	mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
}

func (s *Server) write(w http.ResponseWriter, code int, body string) {
	w.WriteHeader(code)
	if _, err := w.Write([]byte(body)); err != nil {
		s.logger.Error("failed to write response", zap.Error(err))
	}
}
