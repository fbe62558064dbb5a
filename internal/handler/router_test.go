package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epguest/internal/app/basicauth"
	"epguest/internal/app/hooks"
	"epguest/internal/app/pad"
	"epguest/internal/app/session"
	"epguest/internal/app/user"
	"epguest/internal/configs"
	"epguest/internal/guest"
	"epguest/internal/metrics"
	"epguest/internal/pkg/randx"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

func newTestDeps(t *testing.T, requireAuth bool) *AppDeps {
	t.Helper()

	cfg := &configs.AppConfig{
		Environment:           "test",
		Title:                 "Pads",
		RequireAuthentication: requireAuth,
		Session: configs.SessionConfig{
			Secret:     testSecret,
			CookieName: "sid",
			MaxAge:     time.Hour,
			Store:      "memory",
		},
	}

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	reg := hooks.NewRegistry(m)
	require.NoError(t, reg.Install(basicauth.New()))
	require.NoError(t, reg.Install(guest.New(m)))
	require.NoError(t, reg.LoadSettings(&hooks.Settings{
		RequireAuthentication: requireAuth,
		Title:                 cfg.Title,
		Users: user.NewRegistry(map[string]*user.User{
			"admin": {Password: "changeme", IsAdmin: true, DisplayNameChangeable: true},
		}),
	}))

	sessions := session.NewManager(session.NewMemoryStore(), session.Config{
		CookieName: cfg.Session.CookieName,
		Secret:     cfg.Session.Secret,
		MaxAge:     cfg.Session.MaxAge,
	}, func(name string) *user.User {
		return reg.Settings().Users.Lookup(name)
	})

	pads := pad.NewManager(0, m)
	t.Cleanup(pads.Shutdown)

	return &AppDeps{
		Config:   cfg,
		Registry: reg,
		Sessions: sessions,
		Pads:     pads,
		Metrics:  m,
		Gatherer: promReg,
	}
}

type client struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func (c *client) get(target string, basicAuth ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if len(basicAuth) == 2 {
		req.SetBasicAuth(basicAuth[0], basicAuth[1])
	}

	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)

	if cookies := rr.Result().Cookies(); len(cookies) > 0 {
		c.cookie = cookies[0]
	}
	return rr
}

func newClient(t *testing.T, deps *AppDeps) *client {
	return &client{t: t, handler: Router(deps)}
}

func TestHealth(t *testing.T) {
	c := newClient(t, newTestDeps(t, true))

	rr := c.get("/health")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Code int            `json:"code"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Code)
	assert.Equal(t, "ok", body.Data["status"])
	assert.Nil(t, c.cookie, "health checks must not create sessions")
}

func TestPadPageForGuest(t *testing.T) {
	c := newClient(t, newTestDeps(t, true))

	rr := c.get("/p/abc")
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, `id="myusernameedit"`)
	assert.Contains(t, body, `value="Read-Only Guest"`)
	assert.Contains(t, body, "disabled")
	assert.Contains(t, body, `href="/ep_guest/login?redirect_uri=%2Fp%2Fabc"`)
	assert.Contains(t, body, "Log In")
	assert.Contains(t, body, "readonly")
}

func TestPadPageOnOpenServer(t *testing.T) {
	c := newClient(t, newTestDeps(t, false))

	rr := c.get("/p/abc")
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.NotContains(t, body, "/ep_guest/")
	assert.NotContains(t, body, "readonly")
}

func TestInvalidPadID(t *testing.T) {
	c := newClient(t, newTestDeps(t, false))

	rr := c.get("/p/" + strings.Repeat("a", randx.MaxPadIDLength+1))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNewPadRedirect(t *testing.T) {
	c := newClient(t, newTestDeps(t, false))

	rr := c.get("/new")
	require.Equal(t, http.StatusSeeOther, rr.Code)

	loc := rr.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "p/"), loc)
	assert.True(t, randx.IsValidPadID(strings.TrimPrefix(loc, "p/")))
}

func TestAdminDeniedForGuest(t *testing.T) {
	c := newClient(t, newTestDeps(t, true))

	rr := c.get("/admin")
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), `id="permissionDenied"`)
	assert.Contains(t, rr.Body.String(), "Log In")
}

func TestAdminAfterGuestLogin(t *testing.T) {
	c := newClient(t, newTestDeps(t, true))
	c.get("/p/abc")

	rr := c.get("/ep_guest/login?redirect_uri=/admin")
	require.Equal(t, http.StatusSeeOther, rr.Code)

	rr = c.get("/ep_guest/forceauth?redirect_uri=/admin", "admin", "changeme")
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "../admin", rr.Header().Get("Location"))

	rr = c.get("/admin")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<strong>admin</strong>")
	assert.Contains(t, body, "ep_guest")
	assert.Contains(t, body, "basic_auth")
}

func TestAdminRequiresAuthenticationOnOpenServer(t *testing.T) {
	c := newClient(t, newTestDeps(t, false))

	rr := c.get("/admin")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, `Basic realm="Pads"`, rr.Header().Get("WWW-Authenticate"))

	rr = c.get("/admin", "admin", "changeme")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	c := newClient(t, newTestDeps(t, true))
	c.get("/")

	rr := c.get("/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "epguest_access_checks_total")
}

func TestSocketAsGuest(t *testing.T) {
	deps := newTestDeps(t, true)
	srv := httptest.NewServer(Router(deps))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket/abc"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg struct {
		Type    pad.MessageType `json:"type"`
		Payload map[string]any  `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))

	require.Equal(t, pad.TypeClientVars, msg.Type)
	assert.Equal(t, "Read-Only Guest", msg.Payload["userName"])
	assert.Equal(t, true, msg.Payload["readOnly"])
	assert.Equal(t, false, msg.Payload["displayNameChangeable"])
	assert.Equal(t, map[string]any{"isGuest": true}, msg.Payload["ep_guest"])
}

func TestSocketRejectsInvalidPadID(t *testing.T) {
	deps := newTestDeps(t, false)
	srv := httptest.NewServer(Router(deps))
	t.Cleanup(srv.Close)

	res, err := http.Get(srv.URL + "/socket/bad.id")
	require.NoError(t, err)
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
