package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors exported on /metrics
type Metrics struct {
	requests     *prometheus.CounterVec
	calculations *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sempower_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		calculations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sempower_calculation_duration_seconds",
				Help:    "Time spent in power calculations and model fits",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"operation"},
		),
	}
	reg.MustRegister(m.requests, m.calculations)
	return m
}

// Middleware counts requests by matched route
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// observe records the duration of one calculation
func (m *Metrics) observe(operation string, start time.Time) {
	m.calculations.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
