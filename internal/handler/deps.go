package handler

import (
	"github.com/prometheus/client_golang/prometheus"

	"epguest/internal/app/hooks"
	"epguest/internal/app/pad"
	"epguest/internal/app/session"
	"epguest/internal/configs"
	"epguest/internal/metrics"
	"epguest/internal/pkg/limiter"
)

// AppDeps bundles everything the HTTP layer needs.
type AppDeps struct {
	Config   *configs.AppConfig
	Registry *hooks.Registry
	Sessions *session.Manager
	Pads     *pad.Manager

	// Metrics may be nil; Gatherer is nil when the /metrics endpoint is disabled.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	// AuthLimiter throttles requests carrying credentials.
	AuthLimiter *limiter.IPRateLimiter

	// SocketLimiter throttles pad socket upgrades.
	SocketLimiter *limiter.IPRateLimiter
}
