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
	// Subdomain availability checks by reported status
	SubdomainCheckCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_subdomain_checks_total",
			Help: "Total number of subdomain availability checks by result status",
		},
		[]string{"status"}, // "available", "too_short", "reserved", "taken", "error", ...
	)

	// Subdomain lifecycle operations
	SubdomainOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_subdomain_operations_total",
			Help: "Total number of subdomain lifecycle operations",
		},
		[]string{"operation", "result"}, // operation: "reserve", "activate", "sweep"
	)

	// Registration draft operations
	DraftOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_draft_operations_total",
			Help: "Total number of registration draft operations",
		},
		[]string{"operation"}, // "create", "save_step", "autosave", "get", "complete"
	)

	// Completed registrations
	CompletedRegistrationCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "registration_completed_total",
			Help: "Total number of registrations promoted to a company",
		},
	)

	// Swept reservations
	SweptReservationCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "registration_swept_reservations_total",
			Help: "Total number of expired subdomain reservations deleted by sweeps",
		},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	ErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_errors_total",
			Help: "Total number of registration errors",
		},
		[]string{"type"}, // "validation", "conflict", "not_found", "incomplete_data", "store_error", ...
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registration_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registration_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	// Admin session tokens handed out at completion. Tokens expire on
	// their own; nothing decrements this.
	ActiveTokensGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "registration_active_tokens",
			Help: "Number of admin session tokens issued at registration completion",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "registration_info",
			Help: "Information about the registration service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(SubdomainCheckCounter)
	prometheus.MustRegister(SubdomainOperationCounter)
	prometheus.MustRegister(DraftOperationCounter)
	prometheus.MustRegister(CompletedRegistrationCounter)
	prometheus.MustRegister(SweptReservationCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(ErrorCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	// Register gauges
	prometheus.MustRegister(ActiveTokensGauge)
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

// RecordSubdomainCheck records the outcome of an availability check
func RecordSubdomainCheck(status string) {
	SubdomainCheckCounter.With(prometheus.Labels{"status": status}).Inc()
}

// RecordSubdomainOperation records a subdomain lifecycle operation
func RecordSubdomainOperation(operation, result string) {
	SubdomainOperationCounter.With(prometheus.Labels{
		"operation": operation,
		"result":    result,
	}).Inc()
}

// RecordDraftOperation records a registration draft operation
func RecordDraftOperation(operation string) {
	DraftOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordError records a registration error by type
func RecordError(errorType string) {
	ErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// IncreaseActiveTokens increments the active tokens gauge
func IncreaseActiveTokens() {
	ActiveTokensGauge.Inc()
}
