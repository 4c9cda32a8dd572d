// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package web

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestsTotal counts API requests by method, route pattern and status.
// Use RegisterMetrics to register this with a Prometheus registry.
var RequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hrdesk_http_requests_total",
		Help: "Total number of API requests by method, route and status",
	},
	[]string{"method", "route", "status"},
)

// RequestDuration observes API request latency.
var RequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "hrdesk_http_request_duration_seconds",
		Help:    "API request duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// RegisterMetrics registers web package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(RequestsTotal)
	reg.MustRegister(RequestDuration)
}

// RecordRequest records a completed API request.
func RecordRequest(method, route string, status int, d time.Duration) {
	RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
