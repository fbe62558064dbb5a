package guest

import (
	"net/http"

	"epguest/internal/app/session"
)

// ClientVars implements hooks.ClientVarsProvider. The pad page reads
// ep_guest.isGuest to lock the username field for guests.
func (p *Plugin) ClientVars(r *http.Request, sess *session.Session) map[string]any {
	if !p.identity.Enabled() {
		return nil
	}
	return map[string]any{
		PluginName: map[string]any{"isGuest": p.identity.IsGuest(sess)},
	}
}
