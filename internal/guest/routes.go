package guest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"epguest/internal/app/session"
	"epguest/internal/pkg/errs"
	"epguest/internal/pkg/logx"
	"epguest/internal/pkg/resp"
)

// RegisterRoutes implements hooks.RouteRegistrar. Nothing is registered while
// the plugin is disabled; routes are created once per server, so enabling the
// plugin through a settings reload takes effect after a restart. Routes of a
// plugin disabled by a later reload answer 404.
func (p *Plugin) RegisterRoutes(r chi.Router) {
	if !p.identity.Enabled() {
		return
	}

	r.Group(func(r chi.Router) {
		r.Use(p.requireEnabled)
		r.Get(Endpoint(EndpointLogin), p.handleLogin)
		r.Get(Endpoint(EndpointForceAuth), p.handleForceAuth)
		r.Get(Endpoint(EndpointLogout), p.handleLogout)
	})
}

func (p *Plugin) requireEnabled(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.identity.Enabled() {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleLogin destroys the session, then redirects to forceauth with the same query.
// The target is relative so that a reverse proxy mounting the server under a
// path prefix keeps working.
func (p *Plugin) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := p.destroySession(r); err != nil {
		p.metrics.SessionTransition(EndpointLogin, err)
		resp.RespondError(w, r, errs.As(err))
		return
	}
	p.metrics.SessionTransition(EndpointLogin, nil)

	target := EndpointForceAuth
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	resp.RespondRedirect(w, r, target)
}

// handleForceAuth is only reached once another authenticator accepted the request.
func (p *Plugin) handleForceAuth(w http.ResponseWriter, r *http.Request) {
	p.metrics.SessionTransition(EndpointForceAuth, nil)
	resp.RespondRedirect(w, r, p.redirectTarget(r))
}

// handleLogout destroys the session, then redirects to redirect_uri.
func (p *Plugin) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := p.destroySession(r); err != nil {
		p.metrics.SessionTransition(EndpointLogout, err)
		resp.RespondError(w, r, errs.As(err))
		return
	}
	p.metrics.SessionTransition(EndpointLogout, nil)

	resp.RespondRedirect(w, r, p.redirectTarget(r))
}

// destroySession waits for the session to be destroyed.
func (p *Plugin) destroySession(r *http.Request) error {
	sess := session.FromContext(r.Context())
	if sess == nil {
		return errs.NewError(errs.ErrSessionMissing)
	}

	logx.FromRequest(r).Debug().Str("session_id", sess.ID()).Str("username", sess.Username()).Msg("destroying session")
	if err := <-sess.Destroy(r.Context()); err != nil {
		return errs.Wrap(errs.ErrSessionDestroyFailed, err)
	}
	return nil
}

func (p *Plugin) redirectTarget(r *http.Request) string {
	target, defaulted := sanitizeRedirect(r.URL.Query().Get("redirect_uri"))
	p.metrics.RedirectSanitized(defaulted)
	return target
}
