/*
Package hooks is the plugin host of the pad server.

A plugin is any value with a Name. What it takes part in is decided by the
optional capability interfaces it implements (SettingsLoader, PreAuthorizer,
Authenticator, RouteRegistrar, BlockRenderer, ClientVarsProvider). The
Registry dispatches to them and runs the access pipeline in front of every
route (see CheckAccess).

Authenticators run in ascending AuthenticatePriority order. Plugins that do
not implement Prioritized get PriorityDefault. The order is recomputed with a
stable sort whenever a plugin is installed and again when the server is
created, so a plugin that asks for PriorityFirst stays ahead of anything
installed after it.
*/
package hooks

import (
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"epguest/internal/app/session"
	"epguest/internal/app/user"
)

// Decision is the answer of a pre-authorization or authentication hook.
type Decision int

const (
	// Defer leaves the decision to the next hook or to the built-in default.
	Defer Decision = iota

	// Accept ends the chain successfully.
	Accept

	// Deny ends the chain with a refusal.
	Deny
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Deny:
		return "deny"
	default:
		return "defer"
	}
}

const (
	// PriorityFirst sorts an authenticator ahead of every other one.
	PriorityFirst = math.MinInt

	// PriorityDefault is used for authenticators without an explicit priority.
	PriorityDefault = 0
)

// Settings is the view of the server settings handed to plugins on load and reload.
type Settings struct {
	// RequireAuthentication forces every request through the authentication chain.
	RequireAuthentication bool

	// Title is the server title, used as the HTTP Basic realm.
	Title string

	// Users is the shared user registry. Plugins may register additional users.
	Users *user.Registry

	// Plugins holds the raw settings block of every plugin keyed by plugin name.
	Plugins map[string]any
}

// Plugin is the minimal interface every installed plugin implements.
type Plugin interface {
	Name() string
}

// SettingsLoader is called on startup and on every settings reload.
type SettingsLoader interface {
	LoadSettings(s *Settings) error
}

// PreAuthorizer can grant or refuse a request before authentication runs.
type PreAuthorizer interface {
	PreAuthorize(r *http.Request) Decision
}

// Authenticator can attach a user to sess. It runs only when the session has no user.
type Authenticator interface {
	Authenticate(r *http.Request, sess *session.Session) Decision
}

// Prioritized lets an Authenticator choose its position in the chain.
type Prioritized interface {
	AuthenticatePriority() int
}

// RouteRegistrar adds HTTP routes when the server is created.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// BlockContext is passed to block renderers. Content holds the HTML fragment
// of the block and may be replaced by the renderer.
type BlockContext struct {
	Request *http.Request
	Session *session.Session
	Content string
}

// BlockRenderer rewrites named template blocks such as "userlist".
type BlockRenderer interface {
	RenderBlock(name string, bc *BlockContext) error
}

// ClientVarsProvider contributes values to the pad CLIENT_VARS message.
type ClientVarsProvider interface {
	ClientVars(r *http.Request, sess *session.Session) map[string]any
}
