package guest

import (
	"net/http"

	"epguest/internal/app/hooks"
	"epguest/internal/app/session"
)

// PreAuthorize implements hooks.PreAuthorizer. Requests to the login endpoint
// skip authentication so the visitor is not logged in as guest only to have
// that session destroyed. Everything else goes through the normal chain.
func (p *Plugin) PreAuthorize(r *http.Request) hooks.Decision {
	if !p.identity.Enabled() {
		return hooks.Defer
	}
	if r.URL.Path == Endpoint(EndpointLogin) {
		return hooks.Accept
	}
	return hooks.Defer
}

// Authenticate implements hooks.Authenticator. It logs the session in as the
// guest account, except on the forceauth endpoint where it defers to the
// next authenticator.
func (p *Plugin) Authenticate(r *http.Request, sess *session.Session) hooks.Decision {
	guest := p.identity.Guest()
	if guest == nil {
		return hooks.Defer
	}

	if r.URL.Path == Endpoint(EndpointForceAuth) {
		p.logger.Debug().Str("path", r.URL.Path).Msg("deferring to the next authenticator")
		return hooks.Defer
	}

	sess.SetUser(guest)
	p.logger.Debug().Str("path", r.URL.Path).Str("username", guest.Username).Msg("authenticated as guest")
	return hooks.Accept
}

// AuthenticatePriority implements hooks.Prioritized; the guest authenticator always runs first.
func (p *Plugin) AuthenticatePriority() int {
	return hooks.PriorityFirst
}

// LoadSettings implements hooks.SettingsLoader.
func (p *Plugin) LoadSettings(s *hooks.Settings) error {
	if err := p.identity.Load(s); err != nil {
		return err
	}

	if guest := p.identity.Guest(); guest != nil {
		p.logger.Info().Str("username", guest.Username).Msg("Guest access enabled.")
	} else {
		p.logger.Info().Msg("Guest access disabled: require_authentication is off.")
	}
	return nil
}
