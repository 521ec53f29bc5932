package record_repository

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type recordRepositoryMetrics struct {
	sqlUpsertDuration      prometheus.Histogram
	sqlMarkDeletedDuration prometheus.Histogram
	sqlCountDuration       prometheus.Histogram
	sqlListIDsDuration     prometheus.Histogram
	upsertedRecordCounter  *prometheus.CounterVec
	retryCounter           prometheus.Counter
}

var metrics *recordRepositoryMetrics

func init() {
	metrics = new(recordRepositoryMetrics)

	metrics.sqlUpsertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "sync_connector_sql_upsert_records_duration",
		Help: "The amount of time it took to upsert a batch of records",
	})

	metrics.sqlMarkDeletedDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "sync_connector_sql_mark_record_deleted_duration",
		Help: "The amount of time it took to soft delete a record",
	})

	metrics.sqlCountDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "sync_connector_sql_count_records_duration",
		Help: "The amount of time it took to count records per resource type",
	})

	metrics.sqlListIDsDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "sync_connector_sql_list_record_ids_duration",
		Help: "The amount of time it took to list the ids of a resource type",
	})

	metrics.upsertedRecordCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_connector_upserted_records_total",
		Help: "The total number of records written to the mirror",
	}, []string{"provider", "resource_type"})

	metrics.retryCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_connector_sql_upsert_retries_total",
		Help: "The number of upsert batches retried after a deadlock or serialization failure",
	})
}
