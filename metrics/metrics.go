// Package metrics holds the Prometheus collectors of the crawler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScrapeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_scrape_requests_total",
			Help: "Total number of scraping backend requests by outcome",
		},
		[]string{"backend", "outcome"},
	)

	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawler_scrape_request_duration_seconds",
			Help:    "Scraping backend request duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"backend"},
	)

	TaskRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_task_attempts_total",
			Help: "Total number of task attempts by final state of the attempt",
		},
		[]string{"dag", "task", "state"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawler_task_duration_seconds",
			Help:    "Task attempt duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"dag", "task"},
	)

	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_records_written_total",
			Help: "Total number of records persisted by kind",
		},
		[]string{"kind"},
	)

	ObjectsUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_objects_uploaded_total",
			Help: "Total number of files copied to object storage",
		},
	)
)
