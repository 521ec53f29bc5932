package controller

import (
	"context"

	"github.com/RedHatInsights/sync-connector/internal/domain"
)

// SyncManager is the administrative view of a SyncOrchestrator
type SyncManager interface {
	FullSyncer
	ResourceSyncer
	IsSyncing() bool
}

// WebhookProcessor is the entry point for verified and parsed deliveries
type WebhookProcessor interface {
	Reconcile(ctx context.Context, event *domain.WebhookEvent) error
	Replay(ctx context.Context, eventID string) (*domain.WebhookEvent, error)
}

var (
	_ SyncManager      = (*SyncOrchestrator)(nil)
	_ WebhookProcessor = (*WebhookReconciler)(nil)
)
