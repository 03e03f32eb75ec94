package http

import (
	"github.com/JagadeshwaranK/MedPlusMart/internal/application/auth"
	"github.com/JagadeshwaranK/MedPlusMart/internal/metrics"
	appmiddleware "github.com/JagadeshwaranK/MedPlusMart/internal/transport/http/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Deps holds the services and infrastructure the router wires together.
type Deps struct {
	AuthService   auth.Service
	Tokens        appmiddleware.TokenVerifier
	IssuanceLimit appmiddleware.WindowLimiter
	Throttle      *appmiddleware.RateLimiter // nil disables the burst throttle
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer // nil hides /metrics
}
