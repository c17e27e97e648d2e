// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flock_http_requests_total",
		Help: "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flock_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	AttendanceRowsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flock_attendance_rows_written_total",
		Help: "Attendance rows inserted by attendance submissions.",
	})

	AccessCodesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flock_access_codes_issued_total",
		Help: "Livestream access codes issued.",
	})

	AccessCodeValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flock_access_code_validations_total",
		Help: "Access code validation attempts by result.",
	}, []string{"result"})

	PasswordRotations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flock_password_rotations_total",
		Help: "Livestream password rotations by type and whether the provider accepted the new password.",
	}, []string{"type", "synced"})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flock_rate_limited_total",
		Help: "Requests rejected by the public endpoint rate limiter, by route pattern.",
	}, []string{"route"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flock_notifications_total",
		Help: "Outbound notifications by channel and result.",
	}, []string{"channel", "result"})
)

// ObserveRequest records one finished HTTP request.
func ObserveRequest(method, route string, status int, seconds float64) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(seconds)
}

func ObserveRotation(rotationType string, synced bool) {
	PasswordRotations.WithLabelValues(rotationType, strconv.FormatBool(synced)).Inc()
}

func ObserveValidation(result string) {
	AccessCodeValidations.WithLabelValues(result).Inc()
}

func ObserveNotification(channel string, ok bool) {
	result := "sent"
	if !ok {
		result = "failed"
	}
	Notifications.WithLabelValues(channel, result).Inc()
}
