package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate on the local API. Watch for: 429 spikes from polling clients.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight (long-lived event streams included).
	HTTPRequestsInFlight prometheus.Gauge

	// Refresh ticks by outcome (success, transport, decode, unexpected_shape, api_error, dropped, skipped).
	// Watch for: success share dropping to zero (widget stuck on placeholder data).
	RefreshTicksTotal *prometheus.CounterVec

	// weatherapi.com call latency. Watch for: p95 approaching the poll interval (overlapping ticks).
	WeatherAPIDuration *prometheus.HistogramVec

	// Schedules armed since start. One per config change plus the initial arm.
	RefreshSchedulesArmedTotal prometheus.Counter

	// Live refresh schedules. Must never exceed 1.
	RefreshSchedulesActive prometheus.Gauge

	// Writes to the shared weather cell, labelled by whether the placeholder was written.
	WeatherCellWritesTotal *prometheus.CounterVec

	// Connected event-stream clients.
	EventStreamClients prometheus.Gauge

	// Rate limit denials on the local API.
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	RefreshTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refreshTicksTotal",
			Help: "Total number of weather refresh ticks by outcome",
		},
		[]string{"outcome"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "weatherapi.com latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"},
	)
	RefreshSchedulesArmedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "refreshSchedulesArmedTotal",
			Help: "Total number of refresh schedules armed",
		},
	)
	RefreshSchedulesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "refreshSchedulesActive",
			Help: "Number of refresh schedules currently running",
		},
	)
	WeatherCellWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherCellWritesTotal",
			Help: "Total writes to the shared weather cell",
		},
		[]string{"placeholder"},
	)
	EventStreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventStreamClients",
			Help: "Number of connected weather event-stream clients",
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		RefreshTicksTotal, WeatherAPIDuration,
		RefreshSchedulesArmedTotal, RefreshSchedulesActive,
		WeatherCellWritesTotal, EventStreamClients,
		RateLimitDeniedTotal,
	)
}

// RecordCellWrite counts a write to the shared weather cell.
func RecordCellWrite(placeholder bool) {
	if placeholder {
		WeatherCellWritesTotal.WithLabelValues("true").Inc()
		return
	}
	WeatherCellWritesTotal.WithLabelValues("false").Inc()
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
