package controller

import (
	"context"
	"errors"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/platform/logger"

	"github.com/sirupsen/logrus"
)

type FullSyncer interface {
	Sync(ctx context.Context, requested []domain.ResourceType) (*domain.SyncRun, error)
}

// SyncScheduler triggers a full sync on a fixed interval.  Webhooks can be
// lost; the periodic resync is what guarantees eventual convergence.
type SyncScheduler struct {
	syncer    FullSyncer
	interval  time.Duration
	resources []domain.ResourceType
}

func NewSyncScheduler(syncer FullSyncer, interval time.Duration, resources []domain.ResourceType) *SyncScheduler {
	return &SyncScheduler{
		syncer:    syncer,
		interval:  interval,
		resources: resources,
	}
}

// Run blocks until ctx is cancelled
func (s *SyncScheduler) Run(ctx context.Context) {
	logger.Log.WithFields(logrus.Fields{"interval": s.interval, "resource_types": s.resources}).Info("Starting sync scheduler")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Stopping sync scheduler")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *SyncScheduler) tick(ctx context.Context) {
	run, err := s.syncer.Sync(ctx, s.resources)

	var alreadySyncing AlreadySyncingError
	if errors.As(err, &alreadySyncing) {
		metrics.scheduledSyncSkipCounter.Inc()
		logger.Log.Info("Sync already running, skipping scheduled sync")
		return
	}

	if err != nil {
		logger.LogError("Scheduled sync could not start", err)
		return
	}

	if !run.Success {
		logger.Log.WithFields(logrus.Fields{"sync_run_id": run.ID, "errors": run.Errors}).Warn("Scheduled sync finished with errors")
	}
}
