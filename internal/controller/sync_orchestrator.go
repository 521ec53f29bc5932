package controller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/event_repository"
	"github.com/RedHatInsights/sync-connector/internal/platform/logger"
	"github.com/RedHatInsights/sync-connector/internal/provider"
	"github.com/RedHatInsights/sync-connector/internal/record_repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type AlreadySyncingError struct {
	Provider domain.ProviderName
}

func (e AlreadySyncingError) Error() string {
	return fmt.Sprintf("a %s sync is already running", e.Provider)
}

// ResourceSyncer is the part of the orchestrator the webhook path relies on
type ResourceSyncer interface {
	SyncSingleResource(ctx context.Context, ref domain.ObjectRef) (bool, error)
}

type SyncOrchestrator struct {
	provider           provider.Provider
	records            record_repository.RecordStore
	runs               event_repository.SyncRunStore
	notifier           Notifier
	parentFetchWorkers int

	// at most one full sync per orchestrator
	syncing atomic.Bool
}

func NewSyncOrchestrator(p provider.Provider, records record_repository.RecordStore, runs event_repository.SyncRunStore, notifier Notifier, parentFetchWorkers int) *SyncOrchestrator {
	if parentFetchWorkers < 1 {
		parentFetchWorkers = 1
	}

	return &SyncOrchestrator{
		provider:           p,
		records:            records,
		runs:               runs,
		notifier:           notifier,
		parentFetchWorkers: parentFetchWorkers,
	}
}

func (o *SyncOrchestrator) IsSyncing() bool {
	return o.syncing.Load()
}

// Sync walks the requested resource types in dependency order.  A failure in
// one type is recorded in the run and never stops the types after it.
func (o *SyncOrchestrator) Sync(ctx context.Context, requested []domain.ResourceType) (*domain.SyncRun, error) {
	plan, err := o.provider.Graph().Plan(requested)
	if err != nil {
		return nil, err
	}

	if !o.syncing.CompareAndSwap(false, true) {
		metrics.syncRunCounter.WithLabelValues("rejected").Inc()
		return nil, AlreadySyncingError{Provider: o.provider.Name()}
	}
	defer o.syncing.Store(false)

	run := &domain.SyncRun{
		ID:             uuid.New(),
		Provider:       o.provider.Name(),
		RequestedTypes: make([]domain.ResourceType, 0, len(plan)),
		Stats:          make(map[domain.ResourceType]int, len(plan)),
		Errors:         []string{},
		StartedAt:      time.Now().UTC(),
	}
	for _, def := range plan {
		run.RequestedTypes = append(run.RequestedTypes, def.Type)
	}

	logger := logger.Log.WithFields(logrus.Fields{"provider": run.Provider, "sync_run_id": run.ID})
	logger.WithFields(logrus.Fields{"resource_types": run.RequestedTypes}).Info("Starting sync run")

	for _, def := range plan {
		count, err := o.syncResourceType(ctx, def)
		run.Stats[def.Type] = count

		if err != nil {
			run.Errors = append(run.Errors, fmt.Sprintf("%s: %s", def.Type, err))
			metrics.resourceTypeErrorCounter.WithLabelValues(def.Type.String()).Inc()
			logger.WithFields(logrus.Fields{"resource_type": def.Type, "error": err, "upserted": count}).Error("Resource type sync failed")
			continue
		}

		logger.WithFields(logrus.Fields{"resource_type": def.Type, "upserted": count}).Info("Resource type synced")
	}

	run.FinishedAt = time.Now().UTC()
	run.DurationMs = run.FinishedAt.Sub(run.StartedAt).Milliseconds()
	run.Success = len(run.Errors) == 0

	o.finishRun(ctx, run)

	logger.WithFields(logrus.Fields{"stats": run.Stats, "errors": len(run.Errors), "duration_ms": run.DurationMs}).Info("Sync run finished")

	return run, nil
}

func (o *SyncOrchestrator) finishRun(ctx context.Context, run *domain.SyncRun) {
	outcome := "success"
	if !run.Success {
		outcome = "failure"
	}
	metrics.syncRunCounter.WithLabelValues(outcome).Inc()
	metrics.syncRunDuration.Observe(float64(run.DurationMs) / 1000)

	// the run already happened; losing its record must not turn it into an error
	saveCtx := context.WithoutCancel(ctx)
	if err := o.runs.Save(saveCtx, run); err != nil {
		logger.Log.WithFields(logrus.Fields{"sync_run_id": run.ID, "error": err}).Error("Unable to persist sync run")
	}

	o.notifier.SyncRunCompleted(saveCtx, run)
}

func (o *SyncOrchestrator) syncResourceType(ctx context.Context, def provider.ResourceDefinition) (count int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if !def.IsDependent() {
		return o.fetchAndUpsert(ctx, def.Type, "")
	}

	return o.syncDependentType(ctx, def)
}

// syncDependentType lists the already stored parents and fetches the
// children of each one.  A parent whose listing fails is skipped.
func (o *SyncOrchestrator) syncDependentType(ctx context.Context, def provider.ResourceDefinition) (int, error) {
	parentIDs, err := o.records.ListIDs(ctx, o.provider.Name(), def.ParentType)
	if err != nil {
		return 0, fmt.Errorf("listing %s parents: %w", def.ParentType, err)
	}

	logger := logger.Log.WithFields(logrus.Fields{"provider": o.provider.Name(), "resource_type": def.Type, "parent_type": def.ParentType})

	var total atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parentFetchWorkers)

	for _, parentID := range parentIDs {
		g.Go(func() error {
			n, err := o.fetchChildren(gctx, def.Type, parentID)
			total.Add(int64(n))

			if err != nil {
				metrics.parentFetchSkipCounter.WithLabelValues(def.Type.String()).Inc()
				logger.WithFields(logrus.Fields{"parent_id": parentID, "error": err}).Debug("Skipping parent")
			}

			return nil
		})
	}

	// workers swallow per-parent failures, so Wait never reports one
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return int(total.Load()), err
	}

	return int(total.Load()), nil
}

func (o *SyncOrchestrator) fetchChildren(ctx context.Context, resourceType domain.ResourceType, parentID string) (count int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return o.fetchAndUpsert(ctx, resourceType, parentID)
}

func (o *SyncOrchestrator) fetchAndUpsert(ctx context.Context, resourceType domain.ResourceType, parentID string) (int, error) {
	count := 0

	err := o.provider.Fetcher().ListPages(ctx, resourceType, parentID, func(page []domain.ExternalRecord) error {
		n, err := o.records.UpsertMany(ctx, o.provider.Name(), page)
		count += n
		metrics.syncedRecordsCounter.WithLabelValues(resourceType.String()).Add(float64(n))
		return err
	})

	return count, err
}

// SyncSingleResource refreshes one object from the provider.  It reports
// false when the object no longer exists upstream.  It does not take the
// single flight guard, so webhooks keep flowing during a full sync.
func (o *SyncOrchestrator) SyncSingleResource(ctx context.Context, ref domain.ObjectRef) (bool, error) {
	record, err := o.provider.Fetcher().GetOne(ctx, ref)
	if errors.Is(err, provider.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := o.records.UpsertMany(ctx, o.provider.Name(), []domain.ExternalRecord{*record}); err != nil {
		return false, err
	}

	return true, nil
}
