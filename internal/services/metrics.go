package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricUpserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventoryd_device_upserts_total",
		Help: "Device upserts by resulting record status.",
	}, []string{"status"})

	metricHistoryEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventoryd_history_events_total",
		Help: "History appends, split into stored and duplicate-suppressed.",
	}, []string{"result"})

	metricStorageErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventoryd_storage_errors_total",
		Help: "Storage operations that surfaced an error.",
	})

	metricBulkBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inventoryd_bulk_batch_size",
		Help:    "Payload count per bulk discovery batch.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8),
	})
)
