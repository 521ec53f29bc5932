package controller

import (
	"context"
	"fmt"

	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/event_repository"
	"github.com/RedHatInsights/sync-connector/internal/platform/logger"
	"github.com/RedHatInsights/sync-connector/internal/provider"
	"github.com/RedHatInsights/sync-connector/internal/record_repository"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// HandlerError means the event was recorded but its handler failed.  The
// caller should ask the provider to redeliver.
type HandlerError struct {
	EventID string
	Err     error
}

func (e HandlerError) Error() string {
	return fmt.Sprintf("handling webhook event %s: %s", e.EventID, e.Err)
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

type eventHandler func(ctx context.Context, event *domain.WebhookEvent) error

// WebhookReconciler treats a webhook as a hint that an object changed.  The
// payload is stored for audit but never written to the mirror; the object is
// fetched again instead, so stale or reordered deliveries converge on the
// provider's current state.
type WebhookReconciler struct {
	providerName domain.ProviderName
	events       event_repository.EventStore
	records      record_repository.RecordStore
	syncer       ResourceSyncer
	notifier     Notifier
	archiver     PayloadArchiver
	handlers     map[string]eventHandler
	recentlySeen *lru.Cache[string, struct{}]
}

func NewWebhookReconciler(p provider.Provider, events event_repository.EventStore, records record_repository.RecordStore, syncer ResourceSyncer, notifier Notifier, archiver PayloadArchiver, redeliveryCacheSize int) (*WebhookReconciler, error) {
	if redeliveryCacheSize < 1 {
		redeliveryCacheSize = 1
	}

	recentlySeen, err := lru.New[string, struct{}](redeliveryCacheSize)
	if err != nil {
		return nil, err
	}

	r := &WebhookReconciler{
		providerName: p.Name(),
		events:       events,
		records:      records,
		syncer:       syncer,
		notifier:     notifier,
		archiver:     archiver,
		recentlySeen: recentlySeen,
	}

	r.handlers = make(map[string]eventHandler, len(p.EventRoutes()))
	for eventType, route := range p.EventRoutes() {
		switch route.Action {
		case provider.RefetchAction:
			r.handlers[eventType] = r.refetchHandler(route.ResourceType)
		case provider.DeleteAction:
			r.handlers[eventType] = r.deleteHandler(route.ResourceType)
		default:
			return nil, fmt.Errorf("event %s has an unsupported action %s", eventType, route.Action)
		}
	}

	return r, nil
}

// Reconcile records the delivery and then runs its handler.  A redelivered
// event is handled again even when an earlier delivery succeeded.
func (r *WebhookReconciler) Reconcile(ctx context.Context, event *domain.WebhookEvent) error {
	logger := logger.Log.WithFields(logrus.Fields{"provider": r.providerName, "event_id": event.ID, "event_type": event.Type})

	if seen, _ := r.recentlySeen.ContainsOrAdd(event.ID, struct{}{}); seen {
		metrics.webhookRedeliveryCounter.Inc()
		logger.Debug("Redelivery of a recently seen event")
	}

	if err := r.archiver.Archive(ctx, event); err != nil {
		metrics.payloadArchiveFailureCounter.Inc()
		logger.WithFields(logrus.Fields{"error": err}).Warn("Unable to archive webhook payload")
	}

	if err := r.events.Record(ctx, event); err != nil {
		return fmt.Errorf("recording webhook event %s: %w", event.ID, err)
	}

	return r.dispatch(ctx, event)
}

// Replay runs a stored event through its handler again
func (r *WebhookReconciler) Replay(ctx context.Context, eventID string) (*domain.WebhookEvent, error) {
	event, err := r.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{"provider": r.providerName, "event_id": event.ID, "event_type": event.Type}).Info("Replaying webhook event")

	if err := r.dispatch(ctx, event); err != nil {
		return nil, err
	}

	return r.events.Get(ctx, eventID)
}

func (r *WebhookReconciler) dispatch(ctx context.Context, event *domain.WebhookEvent) error {
	logger := logger.Log.WithFields(logrus.Fields{"provider": r.providerName, "event_id": event.ID, "event_type": event.Type})

	handler, ok := r.handlers[event.Type]
	if !ok {
		logger.Debug("No handler for event type")
		metrics.webhookEventCounter.WithLabelValues("unhandled").Inc()
		return r.events.MarkProcessed(ctx, event.ID, nil)
	}

	if err := r.runHandler(ctx, handler, event); err != nil {
		logger.WithFields(logrus.Fields{"error": err}).Error("Webhook handler failed")
		metrics.webhookEventCounter.WithLabelValues("failed").Inc()

		msg := err.Error()
		if markErr := r.events.MarkProcessed(ctx, event.ID, &msg); markErr != nil {
			logger.WithFields(logrus.Fields{"error": markErr}).Error("Unable to record handler failure")
		}

		return HandlerError{EventID: event.ID, Err: err}
	}

	metrics.webhookEventCounter.WithLabelValues("processed").Inc()
	return r.events.MarkProcessed(ctx, event.ID, nil)
}

func (r *WebhookReconciler) runHandler(ctx context.Context, handler eventHandler, event *domain.WebhookEvent) (err error) {
	callDurationTimer := prometheus.NewTimer(metrics.webhookHandlerDuration)
	defer callDurationTimer.ObserveDuration()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	return handler(ctx, event)
}

func (r *WebhookReconciler) refetchHandler(resourceType domain.ResourceType) eventHandler {
	return func(ctx context.Context, event *domain.WebhookEvent) error {
		ref, err := objectRefFromEvent(resourceType, event)
		if err != nil {
			return err
		}

		found, err := r.syncer.SyncSingleResource(ctx, ref)
		if err != nil {
			return err
		}

		if !found {
			logger.Log.WithFields(logrus.Fields{"provider": r.providerName, "event_id": event.ID, "resource_type": ref.Type, "id": ref.ID}).Info("Object no longer exists upstream")
			return nil
		}

		r.notifier.ObjectChanged(ctx, r.providerName, ref, provider.RefetchAction)
		return nil
	}
}

func (r *WebhookReconciler) deleteHandler(resourceType domain.ResourceType) eventHandler {
	return func(ctx context.Context, event *domain.WebhookEvent) error {
		ref, err := objectRefFromEvent(resourceType, event)
		if err != nil {
			return err
		}

		if err := r.records.MarkDeleted(ctx, r.providerName, ref); err != nil {
			return err
		}

		r.notifier.ObjectChanged(ctx, r.providerName, ref, provider.DeleteAction)
		return nil
	}
}

func objectRefFromEvent(resourceType domain.ResourceType, event *domain.WebhookEvent) (domain.ObjectRef, error) {
	if event.ObjectID == "" {
		return domain.ObjectRef{}, fmt.Errorf("event %s does not name an object", event.ID)
	}

	return domain.ObjectRef{Type: resourceType, ID: event.ObjectID, ParentID: event.ObjectParentID}, nil
}
