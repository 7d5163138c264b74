package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Platform API metrics
	PlatformAPICalls    *prometheus.CounterVec
	PlatformAPIDuration *prometheus.HistogramVec
	PlatformAPIFailures *prometheus.CounterVec
	PlatformsConnected  prometheus.Gauge

	// Aggregation metrics
	AggregationsTotal  *prometheus.CounterVec
	AggregationRecords *prometheus.CounterVec

	// Report generation metrics
	ReportsGenerated  *prometheus.CounterVec
	ReportGenDuration prometheus.Histogram
	InsightsGenerated *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		PlatformAPICalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "platform_api_calls_total",
				Help: "Total number of advertising platform API calls",
			},
			[]string{"platform", "operation", "status"},
		),

		PlatformAPIDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "platform_api_duration_seconds",
				Help:    "Advertising platform API call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"platform", "operation"},
		),

		PlatformAPIFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "platform_api_failures_total",
				Help: "Total number of advertising platform API failures",
			},
			[]string{"platform", "error_type"},
		),

		PlatformsConnected: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "platforms_connected",
				Help: "Number of advertising platforms currently connected",
			},
		),

		AggregationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aggregations_total",
				Help: "Total number of cross-platform aggregation requests",
			},
			[]string{"operation", "status"},
		),

		AggregationRecords: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aggregation_records_total",
				Help: "Total number of records merged by the aggregator",
			},
			[]string{"platform", "kind"},
		),

		ReportsGenerated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reports_generated_total",
				Help: "Total number of marketing reports generated",
			},
			[]string{"status"},
		),

		ReportGenDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "report_generation_duration_seconds",
				Help:    "Marketing report generation duration in seconds",
				Buckets: []float64{1, 2, 5, 10, 20, 30, 60},
			},
		),

		InsightsGenerated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_generated_total",
				Help: "Total number of insight computations",
			},
			[]string{"kind"},
		),
	}
}

// HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Platform API call metrics
func (m *Metrics) RecordPlatformAPICall(platform, operation, status string, duration time.Duration) {
	m.PlatformAPICalls.WithLabelValues(platform, operation, status).Inc()
	m.PlatformAPIDuration.WithLabelValues(platform, operation).Observe(duration.Seconds())
}

// Platform API failure metrics
func (m *Metrics) RecordPlatformAPIFailure(platform, errorType string) {
	m.PlatformAPIFailures.WithLabelValues(platform, errorType).Inc()
}

// Connected platform count
func (m *Metrics) SetPlatformsConnected(count int) {
	m.PlatformsConnected.Set(float64(count))
}

// Aggregation request metrics
func (m *Metrics) RecordAggregation(operation, status string) {
	m.AggregationsTotal.WithLabelValues(operation, status).Inc()
}

// Merged record counts
func (m *Metrics) RecordAggregationRecords(platform, kind string, count int) {
	m.AggregationRecords.WithLabelValues(platform, kind).Add(float64(count))
}

// Report generation metrics
func (m *Metrics) RecordReportGenerated(status string, duration time.Duration) {
	m.ReportsGenerated.WithLabelValues(status).Inc()
	m.ReportGenDuration.Observe(duration.Seconds())
}

// Insight computation metrics
func (m *Metrics) RecordInsight(kind string) {
	m.InsightsGenerated.WithLabelValues(kind).Inc()
}

// HTTP requests in flight counter
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// HTTP requests in flight counter
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
