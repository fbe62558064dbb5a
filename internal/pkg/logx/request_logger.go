/*
Package logx provides a structured logging wrapper based on zerolog.

This file contains the HTTP middleware that logs the request lifecycle. Each
request gets a child logger stored in its context (retrieve it with
FromRequest) so that later middleware, such as the authentication pipeline,
can add the resolved identity to the same log stream.
*/
package logx

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// quietPaths are logged at Debug level on success; they are polled by infrastructure.
var quietPaths = []string{"/health", "/metrics"}

// anonymizeIP zeroes the host part of the remote address.
// IPv4 keeps the first three octets, IPv6 keeps the first 64 bits.
func anonymizeIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err == nil {
		remoteAddr = host
	}

	ip := net.ParseIP(remoteAddr)
	if ip == nil {
		return "unknown_ip"
	}

	if ip.IsLoopback() {
		return ip.String()
	}

	if v4 := ip.To4(); v4 != nil {
		return net.IPv4(v4[0], v4[1], v4[2], 0).String()
	}

	masked := ip.Mask(net.CIDRMask(64, 128))
	return masked.String()
}

func isQuiet(path string) bool {
	for _, p := range quietPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// FromRequest returns the request-scoped logger installed by RequestLogger,
// falling back to the global logger.
func FromRequest(r *http.Request) *zerolog.Logger {
	l := zerolog.Ctx(r.Context())
	if l.GetLevel() == zerolog.Disabled {
		return Logger()
	}
	return l
}

// RequestLogger returns a chi-compatible middleware that logs method, URI,
// status, size and latency of every request.
func RequestLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			logger := Logger().With().
				Str("component", "http").
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("remote_ip", anonymizeIP(r.RemoteAddr)).
				Str("method", r.Method).
				Str("uri", r.RequestURI).
				Logger()

			r = r.WithContext(logger.WithContext(r.Context()))
			// Later middleware may add fields to the context logger; log completion through it.
			reqLogger := zerolog.Ctx(r.Context())

			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			var ev *zerolog.Event
			switch {
			case status >= 500:
				ev = reqLogger.Error()
			case status >= 400:
				ev = reqLogger.Warn()
			case isQuiet(r.URL.Path):
				ev = reqLogger.Debug()
			default:
				ev = reqLogger.Info()
			}

			if loc := ww.Header().Get("Location"); loc != "" {
				ev = ev.Str("location", loc)
			}

			ev.Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(start)).
				Msg("request completed")
		}

		return http.HandlerFunc(fn)
	}
}

// SetRequestField adds key=value to the request-scoped logger, if one is installed.
// The global logger is never modified.
func SetRequestField(r *http.Request, key, value string) {
	l := zerolog.Ctx(r.Context())
	if l.GetLevel() == zerolog.Disabled {
		return
	}
	l.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str(key, value)
	})
}
