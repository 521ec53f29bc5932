package event_repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/domain"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GormSyncRunStore struct {
	database     *gorm.DB
	queryTimeout time.Duration
}

func NewGormSyncRunStore(database *gorm.DB, queryTimeout time.Duration) *GormSyncRunStore {
	return &GormSyncRunStore{database: database, queryTimeout: queryTimeout}
}

func (s *GormSyncRunStore) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

func (s *GormSyncRunStore) Save(ctx context.Context, run *domain.SyncRun) error {
	callDurationTimer := prometheus.NewTimer(metrics.sqlSaveSyncRunDuration)
	defer callDurationTimer.ObserveDuration()

	row, err := fromDomainSyncRun(run)
	if err != nil {
		return err
	}

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	return s.database.WithContext(ctx).Save(&row).Error
}

func (s *GormSyncRunStore) Latest(ctx context.Context, provider domain.ProviderName) (*domain.SyncRun, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	var row SyncRun
	err := s.database.WithContext(ctx).
		Where("provider = ?", provider.String()).
		Order("finished_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return toDomainSyncRun(row)
}

func fromDomainSyncRun(run *domain.SyncRun) (SyncRun, error) {
	requestedTypes, err := json.Marshal(run.RequestedTypes)
	if err != nil {
		return SyncRun{}, err
	}

	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return SyncRun{}, err
	}

	errs, err := json.Marshal(run.Errors)
	if err != nil {
		return SyncRun{}, err
	}

	return SyncRun{
		ID:             run.ID.String(),
		Provider:       run.Provider.String(),
		RequestedTypes: datatypes.JSON(requestedTypes),
		Stats:          datatypes.JSON(stats),
		Errors:         datatypes.JSON(errs),
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
		DurationMs:     run.DurationMs,
		Success:        run.Success,
	}, nil
}

func toDomainSyncRun(row SyncRun) (*domain.SyncRun, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, err
	}

	run := &domain.SyncRun{
		ID:         id,
		Provider:   domain.ProviderName(row.Provider),
		Stats:      make(map[domain.ResourceType]int),
		Errors:     []string{},
		StartedAt:  row.StartedAt,
		FinishedAt: row.FinishedAt,
		DurationMs: row.DurationMs,
		Success:    row.Success,
	}

	if err := unmarshalColumn(row.RequestedTypes, &run.RequestedTypes); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(row.Stats, &run.Stats); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(row.Errors, &run.Errors); err != nil {
		return nil, err
	}

	return run, nil
}

func unmarshalColumn(column datatypes.JSON, target interface{}) error {
	if len(column) == 0 || string(column) == "null" {
		return nil
	}
	return json.Unmarshal(column, target)
}
