package record_repository

import (
	"context"
	"errors"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/config"
	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/platform/db"
	"github.com/RedHatInsights/sync-connector/internal/platform/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const retryBackoff = 50 * time.Millisecond

type GormRecordStore struct {
	database     *gorm.DB
	batchSize    int
	maxRetries   int
	queryTimeout time.Duration
	isRetryable  func(error) bool
}

func NewGormRecordStore(cfg *config.Config, database *gorm.DB) *GormRecordStore {
	batchSize := cfg.UpsertBatchSize
	if batchSize < 1 {
		batchSize = 100
	}

	return &GormRecordStore{
		database:     database,
		batchSize:    batchSize,
		maxRetries:   cfg.UpsertMaxRetries,
		queryTimeout: cfg.ConnectionDatabaseQueryTimeout,
		isRetryable:  db.IsRetryableError,
	}
}

var upsertConflictTarget = clause.OnConflict{
	Columns: []clause.Column{{Name: "provider"}, {Name: "resource_type"}, {Name: "external_id"}},
	// deleted_at is always NULL in the incoming row, so a re-upsert revives a
	// soft deleted record
	DoUpdates: clause.AssignmentColumns([]string{"parent_id", "data", "fetched_at", "deleted_at", "updated_at"}),
}

func (s *GormRecordStore) UpsertMany(ctx context.Context, provider domain.ProviderName, records []domain.ExternalRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	callDurationTimer := prometheus.NewTimer(metrics.sqlUpsertDuration)
	defer callDurationTimer.ObserveDuration()

	now := time.Now().UTC()
	rows := make([]SyncedRecord, 0, len(records))
	for _, r := range records {
		fetchedAt := r.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = now
		}

		rows = append(rows, SyncedRecord{
			Provider:     provider.String(),
			ResourceType: r.Type.String(),
			ExternalID:   r.ID,
			ParentID:     r.ParentID,
			Data:         datatypes.JSON(r.Data),
			FetchedAt:    fetchedAt,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	written := 0
	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		err := s.withRetry(ctx, func(ctx context.Context) error {
			return s.database.WithContext(ctx).Clauses(upsertConflictTarget).Create(&batch).Error
		})
		if err != nil {
			return written, err
		}

		written += len(batch)
	}

	for _, r := range records {
		metrics.upsertedRecordCounter.WithLabelValues(provider.String(), r.Type.String()).Inc()
	}

	return written, nil
}

// withRetry runs op until it succeeds, fails with a non retryable error or
// the retry budget is spent.  Each attempt gets its own query timeout.
func (s *GormRecordStore) withRetry(ctx context.Context, op func(context.Context) error) error {
	var err error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.retryCounter.Inc()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}

		queryCtx, cancel := s.queryContext(ctx)
		err = op(queryCtx)
		cancel()

		if err == nil || !s.isRetryable(err) {
			return err
		}

		logger.Log.WithFields(logrus.Fields{"error": err, "attempt": attempt + 1}).Debug("Retrying upsert")
	}

	return err
}

func (s *GormRecordStore) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// MarkDeleted soft deletes a record.  Deleting a record that was never
// mirrored is not an error.
func (s *GormRecordStore) MarkDeleted(ctx context.Context, provider domain.ProviderName, ref domain.ObjectRef) error {
	callDurationTimer := prometheus.NewTimer(metrics.sqlMarkDeletedDuration)
	defer callDurationTimer.ObserveDuration()

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	now := time.Now().UTC()
	result := s.database.WithContext(ctx).
		Model(&SyncedRecord{}).
		Where("provider = ? AND resource_type = ? AND external_id = ? AND deleted_at IS NULL", provider.String(), ref.Type.String(), ref.ID).
		Updates(map[string]interface{}{"deleted_at": now, "updated_at": now})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		logger.Log.WithFields(logrus.Fields{"provider": provider, "resource_type": ref.Type, "id": ref.ID}).Debug("Nothing to delete")
	}

	return nil
}

type typeCount struct {
	ResourceType string
	Count        int64
}

func (s *GormRecordStore) CountByType(ctx context.Context, provider domain.ProviderName) (map[domain.ResourceType]int64, error) {
	callDurationTimer := prometheus.NewTimer(metrics.sqlCountDuration)
	defer callDurationTimer.ObserveDuration()

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	var rows []typeCount
	err := s.database.WithContext(ctx).
		Model(&SyncedRecord{}).
		Select("resource_type, count(*) AS count").
		Where("provider = ? AND deleted_at IS NULL", provider.String()).
		Group("resource_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.ResourceType]int64, len(rows))
	for _, row := range rows {
		counts[domain.ResourceType(row.ResourceType)] = row.Count
	}

	return counts, nil
}

func (s *GormRecordStore) ListIDs(ctx context.Context, provider domain.ProviderName, resourceType domain.ResourceType) ([]string, error) {
	callDurationTimer := prometheus.NewTimer(metrics.sqlListIDsDuration)
	defer callDurationTimer.ObserveDuration()

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	ids := make([]string, 0)
	err := s.database.WithContext(ctx).
		Model(&SyncedRecord{}).
		Where("provider = ? AND resource_type = ? AND deleted_at IS NULL", provider.String(), resourceType.String()).
		Order("external_id").
		Pluck("external_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// Get returns the stored row even when it has been soft deleted
func (s *GormRecordStore) Get(ctx context.Context, provider domain.ProviderName, ref domain.ObjectRef) (*StoredRecord, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	var row SyncedRecord
	err := s.database.WithContext(ctx).
		Where("provider = ? AND resource_type = ? AND external_id = ?", provider.String(), ref.Type.String(), ref.ID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFoundError{Ref: ref}
	}
	if err != nil {
		return nil, err
	}

	return &StoredRecord{
		ExternalRecord: domain.ExternalRecord{
			Type:      domain.ResourceType(row.ResourceType),
			ID:        row.ExternalID,
			ParentID:  row.ParentID,
			Data:      []byte(row.Data),
			FetchedAt: row.FetchedAt,
		},
		Provider:  domain.ProviderName(row.Provider),
		DeletedAt: row.DeletedAt,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}
