package event_repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormEventStore struct {
	database     *gorm.DB
	queryTimeout time.Duration
}

func NewGormEventStore(database *gorm.DB, queryTimeout time.Duration) *GormEventStore {
	return &GormEventStore{database: database, queryTimeout: queryTimeout}
}

func (s *GormEventStore) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

func (s *GormEventStore) Record(ctx context.Context, event *domain.WebhookEvent) error {
	callDurationTimer := prometheus.NewTimer(metrics.sqlRecordEventDuration)
	defer callDurationTimer.ObserveDuration()

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	row := fromDomainEvent(event)

	return s.database.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"received_at", "payload"}),
		}).
		Create(&row).Error
}

func (s *GormEventStore) MarkProcessed(ctx context.Context, eventID string, handlerErr *string) error {
	callDurationTimer := prometheus.NewTimer(metrics.sqlMarkProcessedDuration)
	defer callDurationTimer.ObserveDuration()

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	updates := map[string]interface{}{
		"processed":    true,
		"processed_at": time.Now().UTC(),
		"error":        handlerErr,
	}
	if handlerErr != nil {
		updates["retry_count"] = gorm.Expr("retry_count + 1")
		metrics.failedEventCounter.Inc()
	}

	result := s.database.WithContext(ctx).
		Model(&WebhookEvent{}).
		Where("id = ?", eventID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return NotFoundError{EventID: eventID}
	}

	return nil
}

func (s *GormEventStore) Get(ctx context.Context, eventID string) (*domain.WebhookEvent, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	var row WebhookEvent
	err := s.database.WithContext(ctx).Where("id = ?", eventID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFoundError{EventID: eventID}
	}
	if err != nil {
		return nil, err
	}

	event := toDomainEvent(row)
	return &event, nil
}

func (s *GormEventStore) List(ctx context.Context, filter EventFilter, offset int, limit int) ([]domain.WebhookEvent, int64, error) {
	callDurationTimer := prometheus.NewTimer(metrics.sqlListEventsDuration)
	defer callDurationTimer.ObserveDuration()

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	query := s.database.WithContext(ctx).Model(&WebhookEvent{})

	if filter.Provider != "" {
		query = query.Where("provider = ?", filter.Provider.String())
	}
	if filter.Processed != nil {
		query = query.Where("processed = ?", *filter.Processed)
	}
	if filter.Failed {
		query = query.Where("error IS NOT NULL")
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []WebhookEvent
	err := query.
		Order("received_at DESC").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	events := make([]domain.WebhookEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, toDomainEvent(row))
	}

	return events, total, nil
}

func fromDomainEvent(event *domain.WebhookEvent) WebhookEvent {
	payload := event.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	return WebhookEvent{
		ID:             event.ID,
		Provider:       event.Provider.String(),
		Type:           event.Type,
		SourceAccount:  event.SourceAccount,
		ObjectType:     event.ObjectType.String(),
		ObjectID:       event.ObjectID,
		ObjectParentID: event.ObjectParentID,
		Payload:        datatypes.JSON(payload),
		Processed:      event.Processed,
		ProcessedAt:    event.ProcessedAt,
		Error:          event.Error,
		RetryCount:     event.RetryCount,
		ReceivedAt:     event.ReceivedAt,
	}
}

func toDomainEvent(row WebhookEvent) domain.WebhookEvent {
	return domain.WebhookEvent{
		ID:             row.ID,
		Provider:       domain.ProviderName(row.Provider),
		Type:           row.Type,
		SourceAccount:  row.SourceAccount,
		ObjectType:     domain.ResourceType(row.ObjectType),
		ObjectID:       row.ObjectID,
		ObjectParentID: row.ObjectParentID,
		Payload:        json.RawMessage(row.Payload),
		Processed:      row.Processed,
		ProcessedAt:    row.ProcessedAt,
		Error:          row.Error,
		RetryCount:     row.RetryCount,
		ReceivedAt:     row.ReceivedAt,
	}
}
