package hooks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epguest/internal/app/session"
	"epguest/internal/app/user"
)

type fakePlugin struct {
	name      string
	priority  *int
	decision  Decision
	assign    *user.User
	preauth   Decision
	loadErr   error
	loads     int
	calls     int
	renderErr error
	vars      map[string]any
}

func (f *fakePlugin) Name() string { return f.name }

type authnPlugin struct{ *fakePlugin }

func (a authnPlugin) Authenticate(r *http.Request, sess *session.Session) Decision {
	a.calls++
	if a.decision == Accept && a.assign != nil {
		sess.SetUser(a.assign)
	}
	return a.decision
}

type prioritizedPlugin struct{ authnPlugin }

func (p prioritizedPlugin) AuthenticatePriority() int { return *p.priority }

type preauthPlugin struct{ *fakePlugin }

func (p preauthPlugin) PreAuthorize(r *http.Request) Decision { return p.preauth }

type loaderPlugin struct{ *fakePlugin }

func (l loaderPlugin) LoadSettings(s *Settings) error {
	l.loads++
	return l.loadErr
}

type rendererPlugin struct{ *fakePlugin }

func (p rendererPlugin) RenderBlock(name string, bc *BlockContext) error {
	bc.Content += "<" + p.name + ">"
	return p.renderErr
}

func (p rendererPlugin) ClientVars(r *http.Request, sess *session.Session) map[string]any {
	return p.vars
}

func (p rendererPlugin) RegisterRoutes(r chi.Router) {
	r.Get("/"+p.name, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func intPtr(v int) *int { return &v }

func TestAuthenticatorOrderSurvivesLaterInstalls(t *testing.T) {
	reg := NewRegistry(nil)

	require.NoError(t, reg.Install(authnPlugin{&fakePlugin{name: "basic"}}))
	require.NoError(t, reg.Install(prioritizedPlugin{authnPlugin{&fakePlugin{name: "late", priority: intPtr(10)}}}))
	require.NoError(t, reg.Install(prioritizedPlugin{authnPlugin{&fakePlugin{name: "ep_guest", priority: intPtr(PriorityFirst)}}}))
	require.NoError(t, reg.Install(authnPlugin{&fakePlugin{name: "ldap"}}))

	want := []string{"ep_guest", "basic", "ldap", "late"}
	assert.Equal(t, want, reg.AuthenticatorNames())

	reg.CreateServer(chi.NewRouter())
	assert.Equal(t, want, reg.AuthenticatorNames())

	require.NoError(t, reg.Install(prioritizedPlugin{authnPlugin{&fakePlugin{name: "sso", priority: intPtr(-5)}}}))
	assert.Equal(t, []string{"ep_guest", "sso", "basic", "ldap", "late"}, reg.AuthenticatorNames())
}

func TestInstallRejectsDuplicateNames(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, reg.Install(&fakePlugin{name: "x"}))
	assert.Error(t, reg.Install(&fakePlugin{name: "x"}))
	assert.Len(t, reg.Plugins(), 1)
}

func TestLoadSettingsRunsEveryLoader(t *testing.T) {
	reg := NewRegistry(nil)
	failing := &fakePlugin{name: "failing", loadErr: errors.New("bad block")}
	ok := &fakePlugin{name: "ok"}
	require.NoError(t, reg.Install(loaderPlugin{failing}))
	require.NoError(t, reg.Install(loaderPlugin{ok}))

	s := &Settings{Title: "Pads"}
	err := reg.LoadSettings(s)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing")
	assert.Equal(t, 1, failing.loads)
	assert.Equal(t, 1, ok.loads)
	assert.Same(t, s, reg.Settings())
}

func TestRenderBlockSkipsFailingRenderer(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, reg.Install(rendererPlugin{&fakePlugin{name: "a"}}))
	require.NoError(t, reg.Install(rendererPlugin{&fakePlugin{name: "b", renderErr: errors.New("boom")}}))
	require.NoError(t, reg.Install(rendererPlugin{&fakePlugin{name: "c"}}))

	bc := &BlockContext{Content: "x"}
	reg.RenderBlock("userlist", bc)
	assert.Equal(t, "x<a><c>", bc.Content)
}

func TestClientVarsAndRoutes(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, reg.Install(rendererPlugin{&fakePlugin{name: "a", vars: map[string]any{"a": 1}}}))
	require.NoError(t, reg.Install(rendererPlugin{&fakePlugin{name: "b", vars: map[string]any{"b": true}}}))

	assert.Equal(t, map[string]any{"a": 1, "b": true}, reg.ClientVars(nil, nil))

	r := chi.NewRouter()
	reg.CreateServer(r)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/b", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "defer", Defer.String())
	assert.Equal(t, "accept", Accept.String())
	assert.Equal(t, "deny", Deny.String())
}

func TestIsAdminPath(t *testing.T) {
	assert.True(t, IsAdminPath("/admin"))
	assert.True(t, IsAdminPath("/Admin/plugins"))
	assert.False(t, IsAdminPath("/administrator"))
	assert.False(t, IsAdminPath("/p/admin"))
}

type accessFixture struct {
	reg   *Registry
	store *session.MemoryStore
	sess  *session.Session
	hits  int
}

func newAccessFixture(t *testing.T, requireAuth bool, plugins ...Plugin) *accessFixture {
	t.Helper()
	f := &accessFixture{reg: NewRegistry(nil), store: session.NewMemoryStore()}
	for _, p := range plugins {
		require.NoError(t, f.reg.Install(p))
	}
	require.NoError(t, f.reg.LoadSettings(&Settings{RequireAuthentication: requireAuth, Title: "Pads"}))
	f.sess = session.New("sid", f.store, time.Hour)
	return f
}

func (f *accessFixture) do(path string) *httptest.ResponseRecorder {
	denied := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("denied page"))
	}
	h := f.reg.CheckAccess(denied)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits++
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(session.NewContext(req.Context(), f.sess))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCheckAccessWithoutSession(t *testing.T) {
	reg := NewRegistry(nil)
	h := reg.CheckAccess(nil)(http.NotFoundHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestCheckAccessOpenServer(t *testing.T) {
	authn := &fakePlugin{name: "a", decision: Accept, assign: &user.User{Username: "u"}}
	f := newAccessFixture(t, false, authnPlugin{authn})

	rr := f.do("/p/test")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, authn.calls)
	assert.Nil(t, f.sess.User())
}

func TestCheckAccessPreAuthorize(t *testing.T) {
	t.Run("accept skips authentication", func(t *testing.T) {
		authn := &fakePlugin{name: "a"}
		f := newAccessFixture(t, true, preauthPlugin{&fakePlugin{name: "pre", preauth: Accept}}, authnPlugin{authn})

		rr := f.do("/anything")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Zero(t, authn.calls)
	})

	t.Run("deny renders the permission page", func(t *testing.T) {
		f := newAccessFixture(t, false, preauthPlugin{&fakePlugin{name: "pre", preauth: Deny}})

		rr := f.do("/anything")
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "denied page", rr.Body.String())
		assert.Zero(t, f.hits)
	})
}

func TestCheckAccessChallengesWhenNobodyAccepts(t *testing.T) {
	authn := &fakePlugin{name: "a", decision: Defer}
	f := newAccessFixture(t, true, authnPlugin{authn})

	rr := f.do("/p/test")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, `Basic realm="Pads"`, rr.Header().Get("WWW-Authenticate"))
	assert.Equal(t, 1, authn.calls)
	assert.Zero(t, f.hits)
}

func TestCheckAccessSavesAuthenticatedSession(t *testing.T) {
	first := &fakePlugin{name: "first", priority: intPtr(PriorityFirst), decision: Accept, assign: &user.User{Username: "guest", ReadOnly: true}}
	second := &fakePlugin{name: "second", decision: Accept, assign: &user.User{Username: "other"}}
	f := newAccessFixture(t, true, authnPlugin{second}, prioritizedPlugin{authnPlugin{&fakePlugin{name: "noop", priority: intPtr(-1)}}})
	require.NoError(t, f.reg.Install(prioritizedPlugin{authnPlugin{first}}))
	f.reg.CreateServer(chi.NewRouter())

	rr := f.do("/p/test")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "guest", f.sess.Username())
	assert.Zero(t, second.calls)

	rec, err := f.store.Load(context.Background(), "sid")
	require.NoError(t, err)
	assert.Equal(t, "guest", rec.Username)

	f.do("/p/test")
	assert.Equal(t, 1, first.calls, "authenticators must not run for a session that already has a user")
}

func TestCheckAccessAdminPages(t *testing.T) {
	authn := &fakePlugin{name: "a", decision: Accept, assign: &user.User{Username: "guest"}}
	f := newAccessFixture(t, false, authnPlugin{authn})

	rr := f.do("/admin")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, 1, authn.calls)

	f.sess.SetUser(&user.User{Username: "root", IsAdmin: true})
	rr = f.do("/admin/settings")
	assert.Equal(t, http.StatusOK, rr.Code)
}
