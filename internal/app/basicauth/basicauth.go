/*
Package basicauth is the built-in HTTP Basic authenticator.

It checks the credentials of the Authorization header against the user
registry. A user may carry a bcrypt PasswordHash, a plaintext Password, or
both; the hash wins. Users without credentials can never log in through this
plugin, which is what keeps the synthetic guest account from being used with
an empty password.
*/
package basicauth

import (
	"crypto/subtle"
	"net/http"
	"sync/atomic"

	"golang.org/x/crypto/bcrypt"

	"epguest/internal/app/hooks"
	"epguest/internal/app/session"
	"epguest/internal/app/user"
	"epguest/internal/pkg/logx"
)

// PluginName identifies the authenticator in the hook registry.
const PluginName = "basic_auth"

// Plugin authenticates requests carrying HTTP Basic credentials.
type Plugin struct {
	users atomic.Pointer[user.Registry]
}

// New returns the authenticator. It has no users until LoadSettings runs.
func New() *Plugin {
	return &Plugin{}
}

// Name implements hooks.Plugin.
func (p *Plugin) Name() string {
	return PluginName
}

// LoadSettings implements hooks.SettingsLoader.
func (p *Plugin) LoadSettings(s *hooks.Settings) error {
	p.users.Store(s.Users)
	return nil
}

// Authenticate implements hooks.Authenticator.
func (p *Plugin) Authenticate(r *http.Request, sess *session.Session) hooks.Decision {
	username, password, ok := r.BasicAuth()
	if !ok || username == "" {
		return hooks.Defer
	}

	u := p.users.Load().Lookup(username)
	if u == nil || !CheckPassword(u, password) {
		logx.FromRequest(r).Warn().Str("username", username).Msg("HTTP Basic authentication failed")
		return hooks.Defer
	}

	sess.SetUser(u)
	logx.FromRequest(r).Info().Str("username", username).Msg("HTTP Basic authentication succeeded")
	return hooks.Accept
}

// CheckPassword reports whether password matches the credentials of u.
func CheckPassword(u *user.User, password string) bool {
	if u.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
	}
	if u.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1
}

// HashPassword returns a bcrypt hash suitable for the password_hash setting.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
