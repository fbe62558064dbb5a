package guest

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epguest/internal/app/hooks"
	"epguest/internal/app/session"
	"epguest/internal/app/user"
)

func newEnabledPlugin(t *testing.T) *Plugin {
	t.Helper()
	p := New(nil)
	require.NoError(t, p.LoadSettings(enabledSettings(user.NewRegistry(nil), nil)))
	return p
}

func newSession() *session.Session {
	return session.New("sid", session.NewMemoryStore(), time.Hour)
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "/ep_guest/login", Endpoint(EndpointLogin))
	assert.Equal(t, "/ep_guest/forceauth", Endpoint(EndpointForceAuth))
	assert.Equal(t, "/ep_guest/logout", Endpoint(EndpointLogout))
}

func TestPreAuthorize(t *testing.T) {
	p := newEnabledPlugin(t)

	tests := []struct {
		path string
		want hooks.Decision
	}{
		{"/ep_guest/login", hooks.Accept},
		{"/ep_guest/forceauth", hooks.Defer},
		{"/ep_guest/logout", hooks.Defer},
		{"/p/test", hooks.Defer},
		{"/", hooks.Defer},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path+"?redirect_uri=/x", nil)
			assert.Equal(t, tt.want, p.PreAuthorize(req))
		})
	}
}

func TestAuthenticateInjectsGuest(t *testing.T) {
	p := newEnabledPlugin(t)

	for _, path := range []string{"/", "/p/test", "/ep_guest/logout", "/admin"} {
		t.Run(path, func(t *testing.T) {
			sess := newSession()
			got := p.Authenticate(httptest.NewRequest(http.MethodGet, path, nil), sess)

			assert.Equal(t, hooks.Accept, got)
			assert.Same(t, p.Identity().Guest(), sess.User())
		})
	}
}

func TestAuthenticateDefersOnForceAuth(t *testing.T) {
	p := newEnabledPlugin(t)

	sess := newSession()
	got := p.Authenticate(httptest.NewRequest(http.MethodGet, "/ep_guest/forceauth?redirect_uri=/p/x", nil), sess)
	assert.Equal(t, hooks.Defer, got)
	assert.Nil(t, sess.User())

	admin := &user.User{Username: "admin"}
	sess.SetUser(admin)
	got = p.Authenticate(httptest.NewRequest(http.MethodGet, "/ep_guest/forceauth", nil), sess)
	assert.Equal(t, hooks.Defer, got)
	assert.Same(t, admin, sess.User())
}

func TestDisabledPluginIsInert(t *testing.T) {
	p := New(nil)
	require.NoError(t, p.LoadSettings(&hooks.Settings{Users: user.NewRegistry(nil)}))

	sess := newSession()
	for _, path := range []string{"/ep_guest/login", "/ep_guest/forceauth", "/p/test"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		assert.Equal(t, hooks.Defer, p.PreAuthorize(req), path)
		assert.Equal(t, hooks.Defer, p.Authenticate(req, sess), path)
	}
	assert.Nil(t, sess.User())
	assert.Nil(t, p.ClientVars(nil, sess))

	bc := &hooks.BlockContext{Content: `<div id="myuser"></div>`, Session: sess}
	require.NoError(t, p.RenderBlock(BlockUserlist, bc))
	assert.Equal(t, `<div id="myuser"></div>`, bc.Content)
}

func TestGuestAuthenticatorRunsFirst(t *testing.T) {
	assert.Equal(t, hooks.PriorityFirst, New(nil).AuthenticatePriority())
}
