package prometheus

import (
	"strconv"
	"time"
)

// BrokerMetrics holds every metric the broker records.
type BrokerMetrics struct {
	// Filter pipeline
	FilterCallsTotal       CounterVec
	FilterDuration         HistogramVec
	RejectionsTotal        CounterVec
	TautomerFallbacksTotal CounterVec

	// Standardizer and vendor calls
	ServiceCallsTotal   CounterVec
	ServiceCallDuration HistogramVec

	// Standardizer cache
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec

	// Calculators
	CalculatorRequestsTotal CounterVec
	CalculatorDuration      HistogramVec

	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Worker
	WorkerJobsTotal   CounterVec
	WorkerJobDuration HistogramVec
	WorkerInFlight    GaugeVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets    = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultServiceDurationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultJobDurationBuckets     = []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300}
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// NewBrokerMetrics registers all metrics on collector.
func NewBrokerMetrics(collector MetricsCollector) *BrokerMetrics {
	m := &BrokerMetrics{}

	m.FilterCallsTotal = collector.RegisterCounter("filter_calls_total", "Filter pipeline invocations", "entry", "calculator", "outcome")
	m.FilterDuration = collector.RegisterHistogram("filter_duration_seconds", "Filter pipeline duration", DefaultServiceDurationBuckets, "entry", "calculator")
	m.RejectionsTotal = collector.RegisterCounter("filter_rejections_total", "Structures rejected by the validation gates", "reason", "calculator")
	m.TautomerFallbacksTotal = collector.RegisterCounter("tautomer_fallbacks_total", "Major tautomer lookups that fell back to the prior structure", "cause")

	m.ServiceCallsTotal = collector.RegisterCounter("service_calls_total", "External service calls", "service", "operation", "outcome")
	m.ServiceCallDuration = collector.RegisterHistogram("service_call_duration_seconds", "External service call duration", DefaultServiceDurationBuckets, "service", "operation")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Standardizer cache hits", "tier", "operation")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Standardizer cache misses", "operation")

	m.CalculatorRequestsTotal = collector.RegisterCounter("calculator_requests_total", "Property requests per calculator", "calculator", "property", "outcome")
	m.CalculatorDuration = collector.RegisterHistogram("calculator_duration_seconds", "Property request duration", DefaultServiceDurationBuckets, "calculator")

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests")

	m.WorkerJobsTotal = collector.RegisterCounter("worker_jobs_total", "Worker jobs processed", "outcome")
	m.WorkerJobDuration = collector.RegisterHistogram("worker_job_duration_seconds", "Worker job duration", DefaultJobDurationBuckets)
	m.WorkerInFlight = collector.RegisterGauge("worker_jobs_in_flight", "Worker jobs in flight")

	return m
}

// NewNopBrokerMetrics returns metrics that record nothing.
func NewNopBrokerMetrics() *BrokerMetrics {
	c, h, g := noopCounterVec{}, noopHistogramVec{}, noopGaugeVec{}
	return &BrokerMetrics{
		FilterCallsTotal:        c,
		FilterDuration:          h,
		RejectionsTotal:         c,
		TautomerFallbacksTotal:  c,
		ServiceCallsTotal:       c,
		ServiceCallDuration:     h,
		CacheHitsTotal:          c,
		CacheMissesTotal:        c,
		CalculatorRequestsTotal: c,
		CalculatorDuration:      h,
		HTTPRequestsTotal:       c,
		HTTPRequestDuration:     h,
		HTTPActiveRequests:      g,
		WorkerJobsTotal:         c,
		WorkerJobDuration:       h,
		WorkerInFlight:          g,
	}
}

// Helpers

// RecordFilter records one pipeline invocation.
func RecordFilter(m *BrokerMetrics, entry, calculator, outcome string, d time.Duration) {
	m.FilterCallsTotal.WithLabelValues(entry, calculator, outcome).Inc()
	m.FilterDuration.WithLabelValues(entry, calculator).Observe(d.Seconds())
}

// RecordRejection records a validation gate rejection.
func RecordRejection(m *BrokerMetrics, reason, calculator string) {
	m.RejectionsTotal.WithLabelValues(reason, calculator).Inc()
}

// RecordServiceCall records one external call.
func RecordServiceCall(m *BrokerMetrics, service, operation string, d time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.ServiceCallsTotal.WithLabelValues(service, operation, outcome).Inc()
	m.ServiceCallDuration.WithLabelValues(service, operation).Observe(d.Seconds())
}

// RecordCacheAccess records a cache lookup. tier is "local" or "redis" on a hit.
func RecordCacheAccess(m *BrokerMetrics, tier, operation string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(tier, operation).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(operation).Inc()
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(m *BrokerMetrics, method, path string, statusCode int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
