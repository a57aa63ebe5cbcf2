package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Address claim counter by role performing the claim
	ClaimCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldos_claims_total",
			Help: "Total number of address claim/assignment actions",
		},
		[]string{"role"},
	)

	// Disposition counter by recorded outcome
	DispositionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldos_dispositions_total",
			Help: "Total number of dispositions recorded by outcome",
		},
		[]string{"outcome"},
	)

	// Field metrics query counter
	FieldMetricsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldos_field_metrics_queries_total",
			Help: "Total number of close-rate metrics queries",
		},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldos_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldos_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // type can be "missing_token", "invalid_token", "no_membership" etc.
	)

	// Tenant-specific error counter
	TenantErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldos_tenant_errors_total",
			Help: "Total number of tenant-related errors",
		},
		[]string{"tenant_id", "error_type"}, // Track errors by tenant
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fieldos_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fieldos_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update"
	)
)

// Gauge metrics
var (
	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fieldos_info",
			Help: "Information about the FieldOS service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(ClaimCounter)
	prometheus.MustRegister(DispositionCounter)
	prometheus.MustRegister(FieldMetricsCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(TenantErrorCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	// Register gauges
	prometheus.MustRegister(InfoGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			// Record metrics
			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordTenantError records a tenant-related error
func RecordTenantError(tenantID string, errorType string) {
	TenantErrorCounter.With(prometheus.Labels{
		"tenant_id":  tenantID,
		"error_type": errorType,
	}).Inc()
}

// RecordClaim records a claim/assignment action by caller role
func RecordClaim(role string) {
	ClaimCounter.With(prometheus.Labels{"role": role}).Inc()
}

// RecordDisposition records a disposition by outcome
func RecordDisposition(outcome string) {
	DispositionCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}
