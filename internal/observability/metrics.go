package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	submissionAttempts    *prometheus.CounterVec
	penaltyCacheRequests  *prometheus.CounterVec
	announcementsRequests *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lms_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		submissionAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_submission_attempts_total",
			Help: "Submission writes by outcome.",
		}, []string{"outcome"})

		penaltyCacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_penalty_cache_requests_total",
			Help: "Penalty source lookups by cache result.",
		}, []string{"result"})

		announcementsRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_announcements_requests_total",
			Help: "Announcement list requests by cache result.",
		}, []string{"result"})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, submissionAttempts, penaltyCacheRequests, announcementsRequests)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// SubmissionAttempts counts submission writes labelled by outcome.
func SubmissionAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionAttempts
}

// PenaltyCacheRequests counts penalty cache hits and misses.
func PenaltyCacheRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return penaltyCacheRequests
}

// AnnouncementsRequests counts announcement list cache results.
func AnnouncementsRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return announcementsRequests
}
