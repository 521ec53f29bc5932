package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/RedHatInsights/sync-connector/internal/config"
	"github.com/RedHatInsights/sync-connector/internal/controller"
	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/event_repository"
	"github.com/RedHatInsights/sync-connector/internal/middlewares"
	"github.com/RedHatInsights/sync-connector/internal/platform/logger"
	"github.com/RedHatInsights/sync-connector/internal/provider"
	"github.com/RedHatInsights/sync-connector/internal/record_repository"

	"github.com/gorilla/mux"
	"github.com/redhatinsights/platform-go-middlewares/v2/request_id"
	"github.com/sirupsen/logrus"
)

// SyncServer exposes the administrative sync operations
type SyncServer struct {
	provider provider.Provider
	syncer   controller.SyncManager
	records  record_repository.RecordStore
	runs     event_repository.SyncRunStore
	router   *mux.Router
	config   *config.Config
}

func NewSyncServer(p provider.Provider, syncer controller.SyncManager, records record_repository.RecordStore, runs event_repository.SyncRunStore, r *mux.Router, cfg *config.Config) *SyncServer {
	return &SyncServer{
		provider: p,
		syncer:   syncer,
		records:  records,
		runs:     runs,
		router:   r,
		config:   cfg,
	}
}

func (s *SyncServer) Routes() {
	mmw := &middlewares.MetricsMiddleware{Route: "sync"}
	amw := &middlewares.AuthMiddleware{Secrets: s.config.ServiceToServiceCredentials}

	securedSubRouter := s.router.NewRoute().Subrouter()
	securedSubRouter.Use(logger.AccessLoggerMiddleware,
		mmw.RecordHTTPMetrics,
		amw.Authenticate)

	securedSubRouter.HandleFunc("/sync", s.handleSync()).Methods(http.MethodPost)
	securedSubRouter.HandleFunc("/sync/{type}/{id}", s.handleSyncResource()).Methods(http.MethodPost)
	securedSubRouter.HandleFunc("/status", s.handleStatus()).Methods(http.MethodGet)
}

type syncRequest struct {
	Resources []string `json:"resources" validate:"omitempty,dive,required"`
}

type syncResourceResponse struct {
	Type     domain.ResourceType `json:"type"`
	ID       string              `json:"id"`
	ParentID string              `json:"parent_id,omitempty"`
	Found    bool                `json:"found"`
}

type statusResponse struct {
	Provider domain.ProviderName           `json:"provider"`
	Syncing  bool                          `json:"syncing"`
	Counts   map[domain.ResourceType]int64 `json:"counts"`
	LastRun  *domain.SyncRun               `json:"last_run"`
}

func (s *SyncServer) handleSync() http.HandlerFunc {

	return func(w http.ResponseWriter, req *http.Request) {

		principal, _ := middlewares.GetPrincipal(req.Context())
		requestId := request_id.GetReqID(req.Context())
		logger := logger.Log.WithFields(logrus.Fields{
			"client_id":  principal.GetClientID(),
			"provider":   s.provider.Name(),
			"request_id": requestId})

		body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, 1048576))
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Unable to read request body", err.Error())
			return
		}

		var syncReq syncRequest

		if len(bytes.TrimSpace(body)) > 0 {
			if err := decodeJSON(io.NopCloser(bytes.NewReader(body)), &syncReq); err != nil {
				writeErrorResponse(w, http.StatusBadRequest, "Unable to process json input", err.Error())
				return
			}
		}

		requested := make([]domain.ResourceType, 0, len(syncReq.Resources))
		for _, r := range syncReq.Resources {
			requested = append(requested, domain.ResourceType(r))
		}

		logger.WithFields(logrus.Fields{"resource_types": requested}).Info("Sync requested")

		// a started run completes even when the caller disconnects
		run, err := s.syncer.Sync(context.WithoutCancel(req.Context()), requested)

		var alreadySyncing controller.AlreadySyncingError
		var unknownType provider.UnknownResourceTypeError

		switch {
		case errors.As(err, &alreadySyncing):
			logger.Info("Rejecting sync request, a sync is already running")
			writeErrorResponse(w, http.StatusConflict, "Sync already in progress", err.Error())
			return
		case errors.As(err, &unknownType):
			writeErrorResponse(w, http.StatusBadRequest, "Unknown resource type", err.Error())
			return
		case err != nil:
			logger.WithFields(logrus.Fields{"error": err}).Error("Sync failed to start")
			writeErrorResponse(w, http.StatusInternalServerError, "Sync failed", err.Error())
			return
		}

		writeJSONResponse(w, http.StatusOK, run)
	}
}

func (s *SyncServer) handleSyncResource() http.HandlerFunc {

	return func(w http.ResponseWriter, req *http.Request) {

		principal, _ := middlewares.GetPrincipal(req.Context())
		requestId := request_id.GetReqID(req.Context())
		vars := mux.Vars(req)

		ref := domain.ObjectRef{
			Type:     domain.ResourceType(vars["type"]),
			ID:       vars["id"],
			ParentID: req.URL.Query().Get("parent"),
		}

		logger := logger.Log.WithFields(logrus.Fields{
			"client_id":     principal.GetClientID(),
			"provider":      s.provider.Name(),
			"resource_type": ref.Type,
			"object_id":     ref.ID,
			"request_id":    requestId})

		def, ok := s.provider.Graph().Definition(ref.Type)
		if !ok {
			err := provider.UnknownResourceTypeError{ResourceType: ref.Type}
			writeErrorResponse(w, http.StatusBadRequest, "Unknown resource type", err.Error())
			return
		}

		if def.IsDependent() && ref.ParentID == "" {
			writeErrorResponse(w, http.StatusBadRequest, "Missing parent", "resource type "+ref.Type.String()+" requires the parent query parameter")
			return
		}

		found, err := s.syncer.SyncSingleResource(req.Context(), ref)
		if err != nil {
			logger.WithFields(logrus.Fields{"error": err}).Error("Single resource sync failed")
			writeErrorResponse(w, http.StatusBadGateway, "Unable to sync resource", err.Error())
			return
		}

		logger.WithFields(logrus.Fields{"found": found}).Info("Single resource synced")

		writeJSONResponse(w, http.StatusOK, syncResourceResponse{
			Type:     ref.Type,
			ID:       ref.ID,
			ParentID: ref.ParentID,
			Found:    found,
		})
	}
}

func (s *SyncServer) handleStatus() http.HandlerFunc {

	return func(w http.ResponseWriter, req *http.Request) {

		requestId := request_id.GetReqID(req.Context())
		logger := logger.Log.WithFields(logrus.Fields{
			"provider":   s.provider.Name(),
			"request_id": requestId})

		counts, err := s.records.CountByType(req.Context(), s.provider.Name())
		if err != nil {
			logger.WithFields(logrus.Fields{"error": err}).Error("Unable to count stored records")
			writeErrorResponse(w, http.StatusInternalServerError, "Unable to read status", err.Error())
			return
		}

		lastRun, err := s.runs.Latest(req.Context(), s.provider.Name())
		if err != nil {
			logger.WithFields(logrus.Fields{"error": err}).Error("Unable to read the latest sync run")
			writeErrorResponse(w, http.StatusInternalServerError, "Unable to read status", err.Error())
			return
		}

		writeJSONResponse(w, http.StatusOK, statusResponse{
			Provider: s.provider.Name(),
			Syncing:  s.syncer.IsSyncing(),
			Counts:   counts,
			LastRun:  lastRun,
		})
	}
}
