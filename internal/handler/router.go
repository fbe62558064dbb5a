/*
Package handler provides the HTTP handlers and routing setup for the pad server.

This file defines the main Router. Every route except /health and /metrics
passes through the session middleware and the access pipeline of the hook
registry; plugin routes are mounted inside that group as well.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"epguest/internal/pkg/limiter"
	"epguest/internal/pkg/logx"
)

// Router sets up the HTTP routing table.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", HandleHealth(deps))
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	wsUpgrader := NewUpgrader(deps.Config.IsDevelopment(), deps.Config.AllowedOrigins)

	r.Group(func(app chi.Router) {
		app.Use(deps.Sessions.Middleware)
		if deps.AuthLimiter != nil {
			app.Use(deps.AuthLimiter.MiddlewareIf(limiter.HasCredentials))
		}
		app.Use(deps.Registry.CheckAccess(HandlePermissionDenied(deps)))

		app.Get("/", HandleIndex(deps))
		app.Get("/new", HandleNewPad(deps))
		app.Get("/p/{padID}", HandlePad(deps))
		app.Get("/admin", HandleAdmin(deps))
		app.Get("/socket/{padID}", HandleSocket(wsUpgrader, deps.SocketLimiter, deps))

		deps.Registry.CreateServer(app)
	})

	return r
}
