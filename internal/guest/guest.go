/*
Package guest implements the ep_guest plugin.

Visitors without a session user are logged in automatically as a read-only
guest account. Three endpoints under /ep_guest/ let a visitor leave the guest
account:

	login      destroys the session and redirects to forceauth
	forceauth  is skipped by the guest authenticator, so the next
	           authenticator (HTTP Basic by default) has to accept the
	           request; it then redirects back to redirect_uri
	logout     destroys the session and redirects back to redirect_uri

The two-step login is needed because the session has to be gone before the
authentication chain runs again; otherwise the guest authenticator would
simply accept the request a second time.

The plugin does nothing unless require_authentication is set.
*/
package guest

import (
	"net/url"

	"github.com/rs/zerolog"

	"epguest/internal/metrics"
	"epguest/internal/pkg/logx"
)

// PluginName is the fixed plugin identifier. It names the settings block and
// prefixes the endpoint paths.
const PluginName = "ep_guest"

// Endpoint names.
const (
	EndpointLogin     = "login"
	EndpointForceAuth = "forceauth"
	EndpointLogout    = "logout"
)

// Endpoint returns the absolute path of the named endpoint, e.g. "/ep_guest/login".
func Endpoint(ep string) string {
	return "/" + url.PathEscape(PluginName) + "/" + ep
}

// Plugin is the guest plugin. Install it in a hooks.Registry.
type Plugin struct {
	identity *Identity
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// New returns a disabled plugin; it becomes active on LoadSettings. m may be nil.
func New(m *metrics.Metrics) *Plugin {
	return &Plugin{
		identity: &Identity{},
		metrics:  m,
		logger:   logx.Component(PluginName),
	}
}

// Name implements hooks.Plugin.
func (p *Plugin) Name() string {
	return PluginName
}

// Identity returns the guest identity store.
func (p *Plugin) Identity() *Identity {
	return p.identity
}
