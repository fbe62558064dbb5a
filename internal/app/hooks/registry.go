package hooks

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"epguest/internal/app/session"
	"epguest/internal/metrics"
	"epguest/internal/pkg/logx"
)

type authenticatorEntry struct {
	plugin   Plugin
	authn    Authenticator
	priority int
}

// Registry holds the installed plugins and dispatches hooks to them.
type Registry struct {
	mu             sync.RWMutex
	plugins        []Plugin
	authenticators []authenticatorEntry

	settings atomic.Pointer[Settings]
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewRegistry returns an empty Registry. m may be nil.
func NewRegistry(m *metrics.Metrics) *Registry {
	reg := &Registry{
		metrics: m,
		logger:  logx.Component("hooks"),
	}
	reg.settings.Store(&Settings{})
	return reg
}

// Install adds p to the registry and re-sorts the authentication chain.
// Installing a plugin whose name is already taken is an error.
func (reg *Registry) Install(p Plugin) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for _, existing := range reg.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin %q is already installed", p.Name())
		}
	}
	reg.plugins = append(reg.plugins, p)

	if a, ok := p.(Authenticator); ok {
		reg.authenticators = append(reg.authenticators, authenticatorEntry{
			plugin:   p,
			authn:    a,
			priority: priorityOf(p),
		})
	}
	reg.sortLocked()

	reg.logger.Info().Str("plugin", p.Name()).Msg("Plugin installed.")
	return nil
}

func priorityOf(p Plugin) int {
	if pr, ok := p.(Prioritized); ok {
		return pr.AuthenticatePriority()
	}
	return PriorityDefault
}

// sortLocked refreshes priorities and stable-sorts the authentication chain.
func (reg *Registry) sortLocked() {
	for i := range reg.authenticators {
		reg.authenticators[i].priority = priorityOf(reg.authenticators[i].plugin)
	}
	slices.SortStableFunc(reg.authenticators, func(a, b authenticatorEntry) int {
		switch {
		case a.priority < b.priority:
			return -1
		case a.priority > b.priority:
			return 1
		default:
			return 0
		}
	})
}

// Plugins returns the installed plugins in install order.
func (reg *Registry) Plugins() []Plugin {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return slices.Clone(reg.plugins)
}

// AuthenticatorNames returns the names of the authenticators in chain order.
func (reg *Registry) AuthenticatorNames() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	names := make([]string, 0, len(reg.authenticators))
	for _, e := range reg.authenticators {
		names = append(names, e.plugin.Name())
	}
	return names
}

// Settings returns the settings passed to the last LoadSettings call.
func (reg *Registry) Settings() *Settings {
	return reg.settings.Load()
}

// LoadSettings stores s and calls every SettingsLoader. Every loader runs even
// if an earlier one fails; the errors are joined.
func (reg *Registry) LoadSettings(s *Settings) error {
	var errList []error
	for _, p := range reg.Plugins() {
		loader, ok := p.(SettingsLoader)
		if !ok {
			continue
		}
		if err := loader.LoadSettings(s); err != nil {
			reg.logger.Error().Err(err).Str("plugin", p.Name()).Msg("Plugin failed to load settings.")
			errList = append(errList, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}

	// Published after the loaders ran, so readers never see a user registry
	// that plugins are still extending.
	reg.settings.Store(s)
	return errors.Join(errList...)
}

// CreateServer re-sorts the authentication chain and lets every RouteRegistrar add its routes.
func (reg *Registry) CreateServer(r chi.Router) {
	reg.mu.Lock()
	reg.sortLocked()
	reg.mu.Unlock()

	for _, p := range reg.Plugins() {
		if rr, ok := p.(RouteRegistrar); ok {
			rr.RegisterRoutes(r)
		}
	}
}

// RenderBlock passes bc through every BlockRenderer in install order.
// A failing renderer is logged and skipped; the block keeps its previous content.
func (reg *Registry) RenderBlock(name string, bc *BlockContext) {
	for _, p := range reg.Plugins() {
		br, ok := p.(BlockRenderer)
		if !ok {
			continue
		}
		before := bc.Content
		if err := br.RenderBlock(name, bc); err != nil {
			reg.logger.Warn().Err(err).Str("plugin", p.Name()).Str("block", name).Msg("Block renderer failed.")
			bc.Content = before
		}
	}
}

// ClientVars merges the values of every ClientVarsProvider.
func (reg *Registry) ClientVars(r *http.Request, sess *session.Session) map[string]any {
	vars := make(map[string]any)
	for _, p := range reg.Plugins() {
		if cv, ok := p.(ClientVarsProvider); ok {
			for k, v := range cv.ClientVars(r, sess) {
				vars[k] = v
			}
		}
	}
	return vars
}

// preAuthorize returns the first non-Defer answer of the pre-authorizers.
func (reg *Registry) preAuthorize(r *http.Request) Decision {
	for _, p := range reg.Plugins() {
		pa, ok := p.(PreAuthorizer)
		if !ok {
			continue
		}
		if d := pa.PreAuthorize(r); d != Defer {
			return d
		}
	}
	return Defer
}

// authenticate runs the chain and returns the first non-Defer answer.
func (reg *Registry) authenticate(r *http.Request, sess *session.Session) Decision {
	reg.mu.RLock()
	chain := slices.Clone(reg.authenticators)
	reg.mu.RUnlock()

	for _, e := range chain {
		d := e.authn.Authenticate(r, sess)
		reg.metrics.AuthnDecision(e.plugin.Name(), d.String())
		if d != Defer {
			logx.FromRequest(r).Debug().Str("plugin", e.plugin.Name()).Stringer("decision", d).Msg("authentication decided")
			return d
		}
	}
	return Defer
}
