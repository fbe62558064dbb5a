package guest

import (
	"sync/atomic"

	"epguest/internal/app/hooks"
	"epguest/internal/app/session"
	"epguest/internal/app/user"
	"epguest/internal/configs"
)

const (
	// DefaultUsername is used when the settings block does not name a guest account.
	DefaultUsername = "guest"

	// DefaultDisplayName is given to a guest account created by the plugin.
	DefaultDisplayName = "Read-Only Guest"
)

// Settings is the ep_guest settings block.
type Settings struct {
	Username string `mapstructure:"username"`
}

// Identity holds the current guest account. A nil account means the plugin is disabled.
type Identity struct {
	guest atomic.Pointer[user.User]
}

// Load rebuilds the guest account from s.
//
// Without require_authentication the plugin is disabled. Otherwise the
// configured username is looked up in s.Users. An existing record keeps its
// display name and credentials; a missing one is created. Either way the
// account is read-only with a fixed display name, and it is registered in
// s.Users so that other subsystems resolve the same record.
func (id *Identity) Load(s *hooks.Settings) error {
	if s == nil || !s.RequireAuthentication {
		id.guest.Store(nil)
		return nil
	}

	var cfg Settings
	if err := configs.DecodePlugin(s.Plugins, PluginName, &cfg); err != nil {
		id.guest.Store(nil)
		return err
	}
	if cfg.Username == "" {
		cfg.Username = DefaultUsername
	}

	guest := s.Users.Lookup(cfg.Username).Clone()
	if guest == nil {
		guest = &user.User{DisplayName: DefaultDisplayName}
	}
	guest.Username = cfg.Username
	guest.DisplayNameChangeable = false
	guest.ReadOnly = true
	guest.IsAdmin = false

	s.Users.Register(guest)
	id.guest.Store(guest)
	return nil
}

// Guest returns the guest account, or nil when disabled.
func (id *Identity) Guest() *user.User {
	return id.guest.Load()
}

// Enabled reports whether a guest account is configured.
func (id *Identity) Enabled() bool {
	return id.Guest() != nil
}

// IsGuest reports whether sess is logged in as the guest account.
func (id *Identity) IsGuest(sess *session.Session) bool {
	guest := id.Guest()
	if guest == nil || sess == nil {
		return false
	}
	return sess.Username() == guest.Username
}
