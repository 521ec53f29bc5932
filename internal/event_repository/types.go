package event_repository

import (
	"context"
	"fmt"

	"github.com/RedHatInsights/sync-connector/internal/domain"
)

type NotFoundError struct {
	EventID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("webhook event %s not found", e.EventID)
}

// EventFilter narrows the audit log.  A nil Processed matches both states.
type EventFilter struct {
	Provider  domain.ProviderName
	Processed *bool
	Failed    bool
	Type      string
}

type EventStore interface {
	// Record inserts the event, or refreshes payload and received_at when
	// the id was already delivered.  There is never a second row per id.
	Record(ctx context.Context, event *domain.WebhookEvent) error

	// MarkProcessed closes out a delivery.  A non nil handlerErr also bumps
	// retry_count.
	MarkProcessed(ctx context.Context, eventID string, handlerErr *string) error

	Get(ctx context.Context, eventID string) (*domain.WebhookEvent, error)
	List(ctx context.Context, filter EventFilter, offset int, limit int) ([]domain.WebhookEvent, int64, error)
}

type SyncRunStore interface {
	Save(ctx context.Context, run *domain.SyncRun) error

	// Latest returns nil without an error when no run has finished yet
	Latest(ctx context.Context, provider domain.ProviderName) (*domain.SyncRun, error)
}
