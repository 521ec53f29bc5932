package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	syncRunCounter           *prometheus.CounterVec
	syncRunDuration          prometheus.Histogram
	syncedRecordsCounter     *prometheus.CounterVec
	resourceTypeErrorCounter *prometheus.CounterVec
	parentFetchSkipCounter   *prometheus.CounterVec
	scheduledSyncSkipCounter prometheus.Counter

	webhookEventCounter      *prometheus.CounterVec
	webhookRedeliveryCounter prometheus.Counter
	webhookHandlerDuration   prometheus.Histogram

	notificationKafkaWriterGoRoutineGauge prometheus.Gauge
	notificationKafkaWriterSuccessCounter prometheus.Counter
	notificationKafkaWriterFailureCounter prometheus.Counter

	payloadArchiveFailureCounter prometheus.Counter
}

func NewMetrics() *Metrics {
	metrics := new(Metrics)

	metrics.syncRunCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_connector_sync_runs_total",
		Help: "The number of sync runs by outcome",
	}, []string{"outcome"})

	metrics.syncRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_connector_sync_run_duration_seconds",
		Help:    "The amount of time a full sync run took",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14),
	})

	metrics.syncedRecordsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_connector_synced_records_total",
		Help: "The number of records upserted by sync runs",
	}, []string{"resource_type"})

	metrics.resourceTypeErrorCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_connector_sync_resource_type_errors_total",
		Help: "The number of resource types that failed during a sync run",
	}, []string{"resource_type"})

	metrics.parentFetchSkipCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_connector_sync_parent_fetch_skipped_total",
		Help: "The number of parents whose dependent listing failed and was skipped",
	}, []string{"resource_type"})

	metrics.scheduledSyncSkipCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_connector_scheduled_sync_skipped_total",
		Help: "The number of scheduled syncs skipped because a sync was already running",
	})

	metrics.webhookEventCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_connector_webhook_events_total",
		Help: "The number of webhook events reconciled by outcome",
	}, []string{"outcome"})

	metrics.webhookRedeliveryCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_connector_webhook_redeliveries_total",
		Help: "The number of webhook deliveries for an event id seen recently",
	})

	metrics.webhookHandlerDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "sync_connector_webhook_handler_duration_seconds",
		Help: "The amount of time a webhook handler took",
	})

	metrics.notificationKafkaWriterGoRoutineGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sync_connector_notification_kafka_writer_go_routine_count",
		Help: "The total number of active kafka notification writer go routines",
	})

	metrics.notificationKafkaWriterSuccessCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_connector_notification_kafka_writer_success_count",
		Help: "The number of notifications sent to the kafka topic",
	})

	metrics.notificationKafkaWriterFailureCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_connector_notification_kafka_writer_failure_count",
		Help: "The number of notifications that failed to get produced to kafka topic",
	})

	metrics.payloadArchiveFailureCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_connector_payload_archive_failure_count",
		Help: "The number of webhook payloads that could not be archived",
	})

	return metrics
}

var (
	metrics = NewMetrics()
)
