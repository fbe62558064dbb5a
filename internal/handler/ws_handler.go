/*
Package handler provides the HTTP handlers and routing setup for the pad server.

This file contains HandleSocket, which rate limits and validates pad socket
requests, upgrades them to WebSocket and runs the client lifecycle. The access
middleware has already run, so the session user (possibly the guest) is the
identity of the connection.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"epguest/internal/app/pad"
	"epguest/internal/app/session"
	"epguest/internal/pkg/errs"
	"epguest/internal/pkg/limiter"
	"epguest/internal/pkg/logx"
	"epguest/internal/pkg/randx"
	"epguest/internal/pkg/resp"
)

// NewUpgrader returns the WebSocket upgrader. In development every origin is
// accepted; otherwise the Origin header must be listed in allowedOrigins.
// Requests without an Origin header (non-browser clients) are accepted.
func NewUpgrader(isDevelopment bool, allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if isDevelopment {
				return true
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}
}

// HandleSocket creates the handler of the pad WebSocket endpoint.
func HandleSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := logx.FromRequest(r)

		if rateLimiter != nil && !rateLimiter.Allow(r) {
			logger.Warn().Msg("WebSocket connection rejected: Rate limit exceeded.")
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		padID := chi.URLParam(r, "padID")
		if !randx.IsValidPadID(padID) {
			logger.Warn().Str("pad_id", padID).Msg("WebSocket request rejected: Invalid pad ID")
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		p := deps.Pads.GetOrCreate(padID)
		if p == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if p.IsFull() {
			logger.Info().Str("pad_id", padID).Msg("WebSocket connection rejected: Pad is full.")
			resp.RespondError(w, r, errs.NewError(errs.ErrPadIsFull))
			return
		}

		sess := session.FromContext(r.Context())
		account := pad.Identity(sess.User())
		vars := deps.Registry.ClientVars(r, sess)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to upgrade connection to WebSocket")
			return
		}

		client := pad.NewClient(p, conn, account, vars)

		go client.WritePump()

		logger.Info().Str("pad_id", padID).Str("client_id", client.ID()).Msg("WebSocket connection established")

		p.RegisterClient(client)

		client.ReadPump()
	}
}
