package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cloudbin",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cloudbin",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	authActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cloudbin",
		Name:      "auth_actions_total",
		Help:      "Auth actions by action and outcome.",
	}, []string{"action", "outcome"})

	driveActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cloudbin",
		Name:      "drive_actions_total",
		Help:      "Drive actions by action and outcome.",
	}, []string{"action", "outcome"})

	rateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cloudbin",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter, by scope.",
	}, []string{"scope"})
)

// InitMetrics registers the collectors with the default registry. Safe to call repeatedly.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, authActions, driveActions, rateLimited)
	})
}

// Middleware records request count and latency keyed by the matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveAuth counts one auth action.
func ObserveAuth(action, outcome string) {
	authActions.WithLabelValues(action, outcome).Inc()
}

// ObserveDrive counts one drive action.
func ObserveDrive(action, outcome string) {
	driveActions.WithLabelValues(action, outcome).Inc()
}

// ObserveRateLimited counts a request rejected by the limiter for scope.
func ObserveRateLimited(scope string) {
	rateLimited.WithLabelValues(scope).Inc()
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// Outcome maps a response status to the outcome label used by action counters.
func Outcome(status int) string {
	switch {
	case status < 400:
		return "ok"
	case status == 400:
		return "bad_request"
	case status == 401:
		return "unauthorized"
	case status == 403:
		return "forbidden"
	case status == 404:
		return "not_found"
	case status == 409:
		return "conflict"
	case status == 413:
		return "too_large"
	case status == 429:
		return "rate_limited"
	default:
		return "error"
	}
}
