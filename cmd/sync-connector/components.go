package main

import (
	"database/sql"

	"github.com/RedHatInsights/sync-connector/internal/config"
	"github.com/RedHatInsights/sync-connector/internal/controller"
	"github.com/RedHatInsights/sync-connector/internal/event_repository"
	"github.com/RedHatInsights/sync-connector/internal/platform/db"
	"github.com/RedHatInsights/sync-connector/internal/platform/logger"
	"github.com/RedHatInsights/sync-connector/internal/provider"
	"github.com/RedHatInsights/sync-connector/internal/provider/registry"
	"github.com/RedHatInsights/sync-connector/internal/record_repository"

	"github.com/sirupsen/logrus"
)

// components is everything a command needs to run a sync against the
// configured provider
type components struct {
	cfg          *config.Config
	database     *sql.DB
	provider     provider.Provider
	records      *record_repository.GormRecordStore
	events       *event_repository.GormEventStore
	runs         *event_repository.GormSyncRunStore
	notifier     controller.Notifier
	orchestrator *controller.SyncOrchestrator
}

func buildComponents(cfg *config.Config) (*components, error) {

	database, err := db.InitializeDatabaseConnection(cfg)
	if err != nil {
		logger.LogError("Unable to connect to database", err)
		return nil, err
	}

	gormDatabase, err := db.OpenGorm(database)
	if err != nil {
		logger.LogError("Unable to initialize gorm", err)
		return nil, err
	}

	p, err := registry.NewProvider(cfg)
	if err != nil {
		logger.LogError("Unable to configure provider", err)
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{"provider": p.Name()}).Info("Provider configured")

	notifier, err := controller.NewNotifier(cfg)
	if err != nil {
		logger.LogError("Unable to start the notification producer", err)
		return nil, err
	}

	records := record_repository.NewGormRecordStore(cfg, gormDatabase)
	runs := event_repository.NewGormSyncRunStore(gormDatabase, cfg.ConnectionDatabaseQueryTimeout)

	return &components{
		cfg:          cfg,
		database:     database,
		provider:     p,
		records:      records,
		events:       event_repository.NewGormEventStore(gormDatabase, cfg.ConnectionDatabaseQueryTimeout),
		runs:         runs,
		notifier:     notifier,
		orchestrator: controller.NewSyncOrchestrator(p, records, runs, notifier, cfg.SyncParentFetchWorkers),
	}, nil
}

func (c *components) Close() {
	if closer, ok := c.notifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.LogError("Unable to close the notification producer", err)
		}
	}

	if err := c.database.Close(); err != nil {
		logger.LogError("Unable to close the database connection", err)
	}
}
