package event_repository

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type eventRepositoryMetrics struct {
	sqlRecordEventDuration   prometheus.Histogram
	sqlMarkProcessedDuration prometheus.Histogram
	sqlListEventsDuration    prometheus.Histogram
	sqlSaveSyncRunDuration   prometheus.Histogram
	failedEventCounter       prometheus.Counter
}

var metrics *eventRepositoryMetrics

func init() {
	metrics = new(eventRepositoryMetrics)

	metrics.sqlRecordEventDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "sync_connector_sql_record_webhook_event_duration",
		Help: "The amount of time it took to record a webhook event",
	})

	metrics.sqlMarkProcessedDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "sync_connector_sql_mark_webhook_event_processed_duration",
		Help: "The amount of time it took to mark a webhook event processed",
	})

	metrics.sqlListEventsDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "sync_connector_sql_list_webhook_events_duration",
		Help: "The amount of time it took to list webhook events",
	})

	metrics.sqlSaveSyncRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "sync_connector_sql_save_sync_run_duration",
		Help: "The amount of time it took to persist a sync run",
	})

	metrics.failedEventCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_connector_webhook_events_failed_total",
		Help: "The number of webhook deliveries whose handler failed",
	})
}
