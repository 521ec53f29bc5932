package api

import (
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

	"github.com/gorilla/mux"
	"github.com/redhatinsights/platform-go-middlewares/v2/request_id"
	"github.com/sirupsen/logrus"
)

// WebhookReceiver is the provider facing webhook boundary plus the
// administrative view of the webhook audit log
type WebhookReceiver struct {
	provider     provider.Provider
	processor    controller.WebhookProcessor
	events       event_repository.EventStore
	router       *mux.Router
	config       *config.Config
	maxBodyBytes int64
}

func NewWebhookReceiver(p provider.Provider, processor controller.WebhookProcessor, events event_repository.EventStore, r *mux.Router, cfg *config.Config) *WebhookReceiver {
	maxBodyBytes := cfg.WebhookMaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1048576
	}

	return &WebhookReceiver{
		provider:     p,
		processor:    processor,
		events:       events,
		router:       r,
		config:       cfg,
		maxBodyBytes: maxBodyBytes,
	}
}

func (s *WebhookReceiver) Routes() {
	amw := &middlewares.AuthMiddleware{Secrets: s.config.ServiceToServiceCredentials}
	adminMetrics := &middlewares.MetricsMiddleware{Route: "webhook_events"}

	securedSubRouter := s.router.PathPrefix("/webhooks/events").Subrouter()
	securedSubRouter.Use(logger.AccessLoggerMiddleware,
		adminMetrics.RecordHTTPMetrics,
		amw.Authenticate)

	securedSubRouter.HandleFunc("", s.handleEventListing()).Methods(http.MethodGet)
	securedSubRouter.HandleFunc("/{id}/replay", s.handleEventReplay()).Methods(http.MethodPost)

	// Providers authenticate with a payload signature, not a PSK
	webhookMetrics := &middlewares.MetricsMiddleware{Route: "webhooks"}

	webhookSubRouter := s.router.PathPrefix("/webhooks").Subrouter()
	webhookSubRouter.Use(logger.AccessLoggerMiddleware,
		webhookMetrics.RecordHTTPMetrics)

	webhookSubRouter.HandleFunc("/{provider}", s.handleWebhook()).Methods(http.MethodPost)
}

type webhookResponse struct {
	ID       string `json:"id"`
	Received bool   `json:"received"`
}

func (s *WebhookReceiver) handleWebhook() http.HandlerFunc {

	return func(w http.ResponseWriter, req *http.Request) {

		requestId := request_id.GetReqID(req.Context())
		providerName := domain.ProviderName(mux.Vars(req)["provider"])
		logger := logger.Log.WithFields(logrus.Fields{
			"provider":   providerName,
			"request_id": requestId})

		if providerName != s.provider.Name() {
			logger.Info("Webhook received for a provider that is not configured")
			writeErrorResponse(w, http.StatusNotFound, "Unknown provider", "provider "+providerName.String()+" is not configured")
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, s.maxBodyBytes))
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				writeErrorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large", err.Error())
				return
			}
			writeErrorResponse(w, http.StatusBadRequest, "Unable to read request body", err.Error())
			return
		}

		if err := s.provider.VerifySignature(req.Header, body); err != nil {
			logger.WithFields(logrus.Fields{"error": err}).Warn("Rejecting webhook with an invalid signature")
			writeErrorResponse(w, http.StatusUnauthorized, "Invalid signature", "webhook signature verification failed")
			return
		}

		event, err := s.provider.ParseEvent(req.Header, body)
		if err != nil {
			logger.WithFields(logrus.Fields{"error": err}).Warn("Rejecting malformed webhook")
			writeErrorResponse(w, http.StatusBadRequest, "Malformed webhook event", err.Error())
			return
		}

		logger = logger.WithFields(logrus.Fields{"event_id": event.ID, "event_type": event.Type})

		if err := s.processor.Reconcile(req.Context(), event); err != nil {
			var handlerErr controller.HandlerError
			if errors.As(err, &handlerErr) {
				logger.WithFields(logrus.Fields{"error": err}).Warn("Webhook handler failed, asking the provider to redeliver")
				writeErrorResponse(w, http.StatusInternalServerError, "Webhook handler failed", err.Error())
				return
			}

			logger.WithFields(logrus.Fields{"error": err}).Error("Unable to record webhook event")
			writeErrorResponse(w, http.StatusInternalServerError, "Unable to record webhook event", err.Error())
			return
		}

		writeJSONResponse(w, http.StatusOK, webhookResponse{ID: event.ID, Received: true})
	}
}

func (s *WebhookReceiver) handleEventListing() http.HandlerFunc {

	return func(w http.ResponseWriter, req *http.Request) {

		principal, _ := middlewares.GetPrincipal(req.Context())
		requestId := request_id.GetReqID(req.Context())
		logger := logger.Log.WithFields(logrus.Fields{
			"client_id":  principal.GetClientID(),
			"provider":   s.provider.Name(),
			"request_id": requestId})

		offset, limit, err := getOffsetAndLimitFromQueryParams(req)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Invalid request", err.Error())
			return
		}

		processed, err := getBoolQueryParam(req, "processed")
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Invalid request", err.Error())
			return
		}

		failed, err := getBoolQueryParam(req, "failed")
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Invalid request", err.Error())
			return
		}

		filter := event_repository.EventFilter{
			Provider:  s.provider.Name(),
			Processed: processed,
			Failed:    failed != nil && *failed,
			Type:      req.URL.Query().Get("type"),
		}

		events, total, err := s.events.List(req.Context(), filter, offset, limit)
		if err != nil {
			logger.WithFields(logrus.Fields{"error": err}).Error("Unable to list webhook events")
			writeErrorResponse(w, http.StatusInternalServerError, "Unable to list webhook events", err.Error())
			return
		}

		response := buildWebhookEventPage(req.URL, offset, limit, total, events)

		writeJSONResponse(w, http.StatusOK, response)
	}
}

func (s *WebhookReceiver) handleEventReplay() http.HandlerFunc {

	return func(w http.ResponseWriter, req *http.Request) {

		principal, _ := middlewares.GetPrincipal(req.Context())
		requestId := request_id.GetReqID(req.Context())
		eventID := mux.Vars(req)["id"]
		logger := logger.Log.WithFields(logrus.Fields{
			"client_id":  principal.GetClientID(),
			"provider":   s.provider.Name(),
			"event_id":   eventID,
			"request_id": requestId})

		event, err := s.processor.Replay(req.Context(), eventID)

		var notFound event_repository.NotFoundError
		var handlerErr controller.HandlerError

		switch {
		case errors.As(err, &notFound):
			writeErrorResponse(w, http.StatusNotFound, "Webhook event not found", err.Error())
			return
		case errors.As(err, &handlerErr):
			logger.WithFields(logrus.Fields{"error": err}).Warn("Replayed webhook handler failed")
			writeErrorResponse(w, http.StatusInternalServerError, "Webhook handler failed", err.Error())
			return
		case err != nil:
			logger.WithFields(logrus.Fields{"error": err}).Error("Unable to replay webhook event")
			writeErrorResponse(w, http.StatusInternalServerError, "Unable to replay webhook event", err.Error())
			return
		}

		logger.Info("Webhook event replayed")

		writeJSONResponse(w, http.StatusOK, event)
	}
}
