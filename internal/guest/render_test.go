package guest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epguest/internal/app/hooks"
	"epguest/internal/app/user"
)

const userlistFragment = `<div id="myuser"><div id="myswatchbox"></div><input id="myusernameedit" type="text"/></div><table id="otheruserstable"></table>`

const deniedFragment = `<div id="permissionDenied"><h1>You do not have permission to access this pad</h1></div>`

func TestRenderUserlistForGuest(t *testing.T) {
	p := newEnabledPlugin(t)
	sess := newSession()
	sess.SetUser(p.Identity().Guest())

	bc := &hooks.BlockContext{
		Request: httptest.NewRequest(http.MethodGet, "/p/test?lang=en", nil),
		Session: sess,
		Content: userlistFragment,
	}
	require.NoError(t, p.RenderBlock(BlockUserlist, bc))

	button := `<div class="btn-container" style="margin-left: 10px"><a href="/ep_guest/login?redirect_uri=%2Fp%2Ftest%3Flang%3Den" class="btn btn-primary" data-l10n-id="ep_guest_login">Log In</a></div>`
	assert.Contains(t, bc.Content, button)
	assert.Less(t, strings.Index(bc.Content, "myusernameedit"), strings.Index(bc.Content, button), "button is appended")
	assert.Contains(t, bc.Content, `<table id="otheruserstable"></table>`)
}

func TestRenderPermissionDeniedForUser(t *testing.T) {
	p := newEnabledPlugin(t)
	sess := newSession()
	sess.SetUser(&user.User{Username: "alice"})

	bc := &hooks.BlockContext{
		Request: httptest.NewRequest(http.MethodGet, "/admin", nil),
		Session: sess,
		Content: deniedFragment,
	}
	require.NoError(t, p.RenderBlock(BlockPermissionDenied, bc))

	want := `<div id="permissionDenied"><div class="btn-container" style="float: right; padding: 10px"><a href="/ep_guest/logout?redirect_uri=%2Fadmin" class="btn btn-primary" data-l10n-id="ep_guest_logout">Log Out</a></div><h1>`
	assert.True(t, strings.HasPrefix(bc.Content, want), bc.Content)
}

func TestRenderEscapesRequestURI(t *testing.T) {
	p := newEnabledPlugin(t)

	req := httptest.NewRequest(http.MethodGet, `/p/x?a="><script>alert(1)</script>`, nil)
	bc := &hooks.BlockContext{Request: req, Session: newSession(), Content: deniedFragment}
	require.NoError(t, p.RenderBlock(BlockPermissionDenied, bc))

	assert.NotContains(t, bc.Content, "<script>")
}

func TestRenderLeavesOtherContentAlone(t *testing.T) {
	p := newEnabledPlugin(t)

	bc := &hooks.BlockContext{Session: newSession(), Content: `<p>no anchor here</p>`}
	require.NoError(t, p.RenderBlock(BlockUserlist, bc))
	assert.Equal(t, `<p>no anchor here</p>`, bc.Content)

	bc = &hooks.BlockContext{Session: newSession(), Content: userlistFragment}
	require.NoError(t, p.RenderBlock("editbarMenuLeft", bc))
	assert.Equal(t, userlistFragment, bc.Content)
}

func TestRenderIsIndependentPerCall(t *testing.T) {
	p := newEnabledPlugin(t)

	first := &hooks.BlockContext{Session: newSession(), Content: userlistFragment}
	second := &hooks.BlockContext{Session: newSession(), Content: userlistFragment}
	require.NoError(t, p.RenderBlock(BlockUserlist, first))
	require.NoError(t, p.RenderBlock(BlockUserlist, second))

	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 1, strings.Count(second.Content, "btn-container"))
}

func TestClientVars(t *testing.T) {
	p := newEnabledPlugin(t)
	sess := newSession()
	sess.SetUser(p.Identity().Guest())

	assert.Equal(t, map[string]any{"ep_guest": map[string]any{"isGuest": true}}, p.ClientVars(nil, sess))

	sess.SetUser(&user.User{Username: "alice"})
	assert.Equal(t, map[string]any{"ep_guest": map[string]any{"isGuest": false}}, p.ClientVars(nil, sess))
}
