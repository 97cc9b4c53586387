package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kbcrawler"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// CrawlsTotal counts finished crawls; outcome is completed, empty, failed, timeout or cached.
	CrawlsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawls_total",
			Help:      "Total number of crawl requests by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	CrawlDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_duration_seconds",
			Help:      "Duration of whole crawl requests.",
			Buckets:   []float64{1, 5, 10, 15, 30, 60, 120, 300},
		},
		[]string{"mode"},
	)

	PagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Pages processed by stage and status.",
		},
		[]string{"stage", "status"},
	)

	LinksDiscovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_discovered_total",
			Help:      "Unique links discovered by mode.",
		},
		[]string{"mode"},
	)

	BrowserSessionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "browser_sessions_open",
			Help:      "Browser sessions currently owned by in-flight crawls.",
		},
	)

	NavigationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "navigation_duration_seconds",
			Help:      "Duration of single page loads in the headless browser.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 9),
		},
		[]string{"driver"},
	)

	DocumentResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_responses_total",
			Help:      "Main document responses seen by the headless browser, by status class.",
		},
		[]string{"driver", "class"},
	)

	IngestJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_jobs_total",
			Help:      "Knowledge-base ingestion handoffs by status.",
		},
		[]string{"status"},
	)

	IngestQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingest_queue_depth",
			Help:      "Ingestion jobs waiting in the queue, sampled after each push.",
		},
	)
)

// StatusClass buckets an HTTP status as "2xx" through "5xx"; zero or
// out-of-range codes are "unknown".
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
