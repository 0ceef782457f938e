// Package metrics exposes the Prometheus collectors and the /metrics handler.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Storage outcomes.
const (
	StorageS3            = "s3"
	StorageLocalFallback = "local_fallback"
	StorageDirect        = "direct"
	StorageFailed        = "failed"
)

// Parse outcomes.
const (
	ParseSuccess = "success"
	ParseEmpty   = "empty"
	ParseError   = "error"
)

var (
	StorageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ashray",
		Name:      "prescription_storage_total",
		Help:      "Prescription files stored, by storage path.",
	}, []string{"path"})

	Parses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ashray",
		Name:      "prescription_parses_total",
		Help:      "Calls to the parsing service, by outcome.",
	}, []string{"outcome"})

	RemindersSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ashray",
		Name:      "medication_reminders_total",
		Help:      "Medication reminder emails, by result.",
	}, []string{"result"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ashray",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ashray",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Middleware records request counts and latency keyed by the matched route pattern.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
