package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/RedHatInsights/sync-connector/internal/config"
	"github.com/RedHatInsights/sync-connector/internal/controller"
	"github.com/RedHatInsights/sync-connector/internal/controller/api"
	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/platform/logger"
	"github.com/RedHatInsights/sync-connector/internal/platform/utils"

	"github.com/gorilla/mux"
	"github.com/redhatinsights/platform-go-middlewares/v2/request_id"
	"github.com/sirupsen/logrus"
)

func startSyncConnectorApiServer(listenAddr string) {

	logger.InitLogger()
	defer logger.FlushLogger()

	logger.Log.Info("Starting Sync-Connector service")

	cfg := config.GetConfig()
	logger.Log.Info("Sync-Connector configuration:\n", cfg)

	c, err := buildComponents(cfg)
	if err != nil {
		logger.LogFatalError("Unable to initialize Sync-Connector", err)
	}
	defer c.Close()

	archiver, err := controller.NewPayloadArchiver(cfg)
	if err != nil {
		logger.LogFatalError("Unable to configure the webhook payload archive", err)
	}

	reconciler, err := controller.NewWebhookReconciler(c.provider, c.events, c.records, c.orchestrator, c.notifier, archiver, cfg.WebhookRedeliveryCacheSize)
	if err != nil {
		logger.LogFatalError("Unable to create webhook reconciler", err)
	}

	apiMux := mux.NewRouter()
	apiMux.Use(request_id.ConfiguredRequestID("x-rh-insights-request-id"))

	monitoringServer := api.NewMonitoringServer(apiMux, cfg, c.database.PingContext)
	monitoringServer.Routes()

	apiRouter := apiMux.PathPrefix(cfg.UrlBasePath).Subrouter()

	apiSpecServer := api.NewApiSpecServer(apiRouter, cfg.OpenApiSpecFilePath)
	apiSpecServer.Routes()

	webhookReceiver := api.NewWebhookReceiver(c.provider, reconciler, c.events, apiRouter, cfg)
	webhookReceiver.Routes()

	syncServer := api.NewSyncServer(c.provider, c.orchestrator, c.records, c.runs, apiRouter, cfg)
	syncServer.Routes()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.SyncInterval > 0 {
		resources := make([]domain.ResourceType, 0, len(cfg.SyncDefaultResources))
		for _, r := range cfg.SyncDefaultResources {
			resources = append(resources, domain.ResourceType(r))
		}

		logger.Log.WithFields(logrus.Fields{"interval": cfg.SyncInterval, "resource_types": resources}).Info("Starting periodic sync scheduler")

		scheduler := controller.NewSyncScheduler(c.orchestrator, cfg.SyncInterval, resources)
		go scheduler.Run(ctx)
	}

	apiSrv := utils.StartHTTPServer(listenAddr, "api", apiMux)

	signalChan := make(chan os.Signal, 1)

	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-signalChan
	logger.Log.Info("Received signal to shutdown: ", sig)

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HttpShutdownTimeout)
	defer shutdownCancel()

	utils.ShutdownHTTPServer(shutdownCtx, "api", apiSrv)

	logger.Log.Info("Sync-Connector shutting down")
}
