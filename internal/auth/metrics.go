// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Login outcome labels.
const (
	OutcomeSuccess            = "success"
	OutcomeMissingCredentials = "missing_credentials"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeAccountDisabled    = "account_disabled"
	OutcomeError              = "error"
)

// Token validation result labels.
const (
	TokenValid   = "valid"
	TokenMissing = "missing"
	TokenInvalid = "invalid"
	TokenExpired = "expired"
)

// LoginAttempts counts login attempts by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var LoginAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hrdesk_login_attempts_total",
		Help: "Total number of login attempts by outcome",
	},
	[]string{"outcome"},
)

// TokenValidations counts bearer token checks by result.
var TokenValidations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hrdesk_token_validations_total",
		Help: "Total number of session token validations by result",
	},
	[]string{"result"},
)

// HashDuration observes password hash and verify latency.
var HashDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "hrdesk_password_hash_duration_seconds",
		Help:    "Password hashing and verification duration in seconds",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	},
	[]string{"operation"},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(LoginAttempts)
	reg.MustRegister(TokenValidations)
	reg.MustRegister(HashDuration)
}

// RecordLoginAttempt increments the login counter for outcome.
func RecordLoginAttempt(outcome string) {
	LoginAttempts.WithLabelValues(outcome).Inc()
}

// RecordTokenValidation increments the token validation counter for result.
func RecordTokenValidation(result string) {
	TokenValidations.WithLabelValues(result).Inc()
}

// RecordHashDuration records how long a hash or verify call took.
func RecordHashDuration(operation string, d time.Duration) {
	HashDuration.WithLabelValues(operation).Observe(d.Seconds())
}
