// Package metrics provides Prometheus counters for passcode, rate limit and
// federation outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service counters. A disabled instance is a no-op.
type Metrics struct {
	enabled bool

	// Passcode metrics
	otpIssued        prometheus.Counter
	otpVerifications *prometheus.CounterVec
	otpRateLimited   prometheus.Counter

	// Login metrics
	federationLogins *prometheus.CounterVec
	tokensIssued     *prometheus.CounterVec
}

// New creates the counters and registers them with reg.
// If enabled is false, returns a no-op Metrics instance.
func New(reg prometheus.Registerer, enabled bool) *Metrics {
	m := &Metrics{enabled: enabled}
	if !enabled {
		return m
	}
	f := promauto.With(reg)

	m.otpIssued = f.NewCounter(prometheus.CounterOpts{
		Name: "otp_issued_total",
		Help: "Total one-time passcodes issued",
	})
	m.otpVerifications = f.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_verifications_total",
		Help: "Total passcode verifications by outcome",
	}, []string{"outcome"})
	m.otpRateLimited = f.NewCounter(prometheus.CounterOpts{
		Name: "otp_rate_limited_total",
		Help: "Total passcode requests rejected by the issuance limiter",
	})

	m.federationLogins = f.NewCounterVec(prometheus.CounterOpts{
		Name: "federation_logins_total",
		Help: "Total federated login attempts by result",
	}, []string{"result"})
	m.tokensIssued = f.NewCounterVec(prometheus.CounterOpts{
		Name: "session_tokens_issued_total",
		Help: "Total session tokens issued by login method",
	}, []string{"method"})

	return m
}

// PasscodeIssued records a newly issued passcode.
func (m *Metrics) PasscodeIssued() {
	if !m.enabled {
		return
	}
	m.otpIssued.Inc()
}

// PasscodeVerified records the outcome of one verification.
func (m *Metrics) PasscodeVerified(outcome string) {
	if !m.enabled {
		return
	}
	m.otpVerifications.WithLabelValues(outcome).Inc()
}

// IssuanceLimited records a send request rejected by the rate limiter.
func (m *Metrics) IssuanceLimited() {
	if !m.enabled {
		return
	}
	m.otpRateLimited.Inc()
}

// FederatedLogin records a federated login result ("success", "rejected", "error").
func (m *Metrics) FederatedLogin(result string) {
	if !m.enabled {
		return
	}
	m.federationLogins.WithLabelValues(result).Inc()
}

// TokenIssued records a minted session token.
func (m *Metrics) TokenIssued(method string) {
	if !m.enabled {
		return
	}
	m.tokensIssued.WithLabelValues(method).Inc()
}
