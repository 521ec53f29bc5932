package api

import (
	"context"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/config"
	"github.com/RedHatInsights/sync-connector/internal/platform/logger"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const readinessTimeout = 2 * time.Second

// ReadinessCheck reports whether a dependency (usually the database) can
// currently serve requests
type ReadinessCheck func(ctx context.Context) error

type MonitoringServer struct {
	router    *mux.Router
	config    *config.Config
	readiness ReadinessCheck
}

func NewMonitoringServer(r *mux.Router, cfg *config.Config, readiness ReadinessCheck) *MonitoringServer {
	return &MonitoringServer{
		router:    r,
		config:    cfg,
		readiness: readiness,
	}
}

func (s *MonitoringServer) Routes() {
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/liveness", s.handleLiveness()).Methods(http.MethodGet)
	s.router.HandleFunc("/readiness", s.handleReadiness()).Methods(http.MethodGet)

	if s.config.Profile {
		logger.Log.Warn("WARNING: Enabling the profiler endpoint!!")
		s.router.PathPrefix("/debug").Handler(http.DefaultServeMux)
	}
}

func (s *MonitoringServer) handleLiveness() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

func (s *MonitoringServer) handleReadiness() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if s.readiness == nil {
			w.WriteHeader(http.StatusOK)
			return
		}

		ctx, cancel := context.WithTimeout(req.Context(), readinessTimeout)
		defer cancel()

		if err := s.readiness(ctx); err != nil {
			logger.Log.WithFields(logrus.Fields{"error": err}).Warn("Readiness check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}
