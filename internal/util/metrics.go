package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReceiptsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receipts_processed_total",
		Help: "Total number of goods receipts processed",
	})

	ReceiptItemsUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receipt_items_updated_total",
		Help: "Total number of components whose procurement was updated by a receipt",
	})

	FitmentsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fitments_recorded_total",
		Help: "Total number of component fitments recorded",
	})

	InspectionsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspections_recorded_total",
		Help: "Total number of component inspections recorded",
	}, []string{"status"})

	InspectionReadsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inspection_reads_skipped_total",
		Help: "Total number of inspection reads skipped because the RID is unknown",
	})

	DefectAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "defect_alerts_total",
		Help: "Total number of failing inspection reads seen by the defect monitor",
	}, []string{"status"})

	SuspectFitmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suspect_fitments_total",
		Help: "Total number of fitments of components whose batch has reported defects",
	}, []string{"batch_id"})

	BatchDefectRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "batch_defect_rate_percent",
		Help: "Defect rate of a batch in percent",
	}, []string{"batch_id"})

	ComponentCacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "component_cache_requests_total",
		Help: "Component detail cache lookups",
	}, []string{"result"})

	EventPublishFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_publish_failures_total",
		Help: "Total number of events that could not be published",
	}, []string{"event_type"})

	SeedRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seed_runs_total",
		Help: "Total number of seed runs",
	}, []string{"result"})

	ComponentLookupLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "component_lookup_latency_seconds",
		Help:    "Latency of component detail lookups",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
