package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/config"
	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/platform/logger"
	"github.com/RedHatInsights/sync-connector/internal/platform/queue"
	"github.com/RedHatInsights/sync-connector/internal/provider"

	kafka "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const notificationWriteTimeout = 10 * time.Second

// Notifier tells downstream consumers that the mirror changed.  Delivery is
// best effort and never fails the caller.
type Notifier interface {
	SyncRunCompleted(ctx context.Context, run *domain.SyncRun)
	ObjectChanged(ctx context.Context, provider domain.ProviderName, ref domain.ObjectRef, action provider.EventAction)
}

func NewNotifier(cfg *config.Config) (Notifier, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return &NoopNotifier{}, nil
	}

	kafkaProducerCfg := &queue.ProducerConfig{
		Brokers:    cfg.KafkaBrokers,
		Topic:      cfg.KafkaNotificationsTopic,
		BatchSize:  cfg.KafkaNotificationsBatchSize,
		BatchBytes: cfg.KafkaNotificationsBatchBytes,
		Balancer:   "hash",
	}

	if cfg.KafkaSASLMechanism != "" {
		kafkaProducerCfg.SaslConfig = &queue.SaslConfig{
			SaslMechanism: cfg.KafkaSASLMechanism,
			SaslUsername:  cfg.KafkaUsername,
			SaslPassword:  cfg.KafkaPassword,
			KafkaCA:       cfg.KafkaCA,
		}
	}

	kafkaProducer, err := queue.StartProducer(kafkaProducerCfg)
	if err != nil {
		return nil, err
	}

	return &KafkaNotifier{KafkaWriter: kafkaProducer}, nil
}

type notificationMessage struct {
	Kind     string              `json:"kind"`
	Provider domain.ProviderName `json:"provider"`
	Action   string              `json:"action,omitempty"`
	Object   *domain.ObjectRef   `json:"object,omitempty"`
	SyncRun  *domain.SyncRun     `json:"sync_run,omitempty"`
	SentAt   time.Time           `json:"sent_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaNotifier struct {
	KafkaWriter messageWriter
}

// Close flushes and closes the underlying writer
func (kn *KafkaNotifier) Close() error {
	if closer, ok := kn.KafkaWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (kn *KafkaNotifier) SyncRunCompleted(ctx context.Context, run *domain.SyncRun) {
	msg := notificationMessage{
		Kind:     "sync_run_completed",
		Provider: run.Provider,
		SyncRun:  run,
		SentAt:   time.Now().UTC(),
	}

	kn.publish(ctx, fmt.Sprintf("%s:sync_run:%s", run.Provider, run.ID), msg)
}

func (kn *KafkaNotifier) ObjectChanged(ctx context.Context, providerName domain.ProviderName, ref domain.ObjectRef, action provider.EventAction) {
	msg := notificationMessage{
		Kind:     "object_changed",
		Provider: providerName,
		Action:   action.String(),
		Object:   &ref,
		SentAt:   time.Now().UTC(),
	}

	kn.publish(ctx, objectKey(providerName, ref), msg)
}

// objectKey keeps every notification about one object on one partition
func objectKey(providerName domain.ProviderName, ref domain.ObjectRef) string {
	return fmt.Sprintf("%s:%s:%s", providerName, ref.Type, ref.ID)
}

func (kn *KafkaNotifier) publish(ctx context.Context, key string, msg notificationMessage) {
	logger := logger.Log.WithFields(logrus.Fields{"provider": msg.Provider, "kind": msg.Kind, "key": key})

	value, err := json.Marshal(msg)
	if err != nil {
		logger.WithFields(logrus.Fields{"error": err}).Error("JSON marshal of notification failed")
		metrics.notificationKafkaWriterFailureCounter.Inc()
		return
	}

	// the notification outlives the request that triggered it
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notificationWriteTimeout)

	go func() {
		defer cancel()

		metrics.notificationKafkaWriterGoRoutineGauge.Inc()
		defer metrics.notificationKafkaWriterGoRoutineGauge.Dec()

		err := kn.KafkaWriter.WriteMessages(writeCtx,
			kafka.Message{
				Key:   []byte(key),
				Value: value,
			})

		if err != nil {
			logger.WithFields(logrus.Fields{"error": err}).Error("Error writing notification to kafka")

			if !errors.Is(err, context.Canceled) {
				metrics.notificationKafkaWriterFailureCounter.Inc()
			}
			return
		}

		logger.Debug("Notification kafka message written")
		metrics.notificationKafkaWriterSuccessCounter.Inc()
	}()
}

type NoopNotifier struct {
}

func (nn *NoopNotifier) SyncRunCompleted(ctx context.Context, run *domain.SyncRun) {
	logger.Log.WithFields(logrus.Fields{"provider": run.Provider, "sync_run_id": run.ID}).Debug("NOOP: sync run completed")
}

func (nn *NoopNotifier) ObjectChanged(ctx context.Context, providerName domain.ProviderName, ref domain.ObjectRef, action provider.EventAction) {
	logger.Log.WithFields(logrus.Fields{"provider": providerName, "resource_type": ref.Type, "id": ref.ID, "action": action}).Debug("NOOP: object changed")
}
