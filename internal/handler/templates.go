/*
Package handler provides the HTTP handlers and routing setup for the pad server.

This file holds the page templates. Pages are rendered with pongo2; the blocks
that plugins may decorate (userlist and permissionDenied) are rendered on their
own first, passed through the hook registry, and then embedded unescaped.
*/
package handler

import (
	"net/http"

	"github.com/flosch/pongo2/v6"

	"epguest/internal/app/hooks"
	"epguest/internal/app/session"
	"epguest/internal/pkg/errs"
	"epguest/internal/pkg/logx"
	"epguest/internal/pkg/resp"
)

var layoutTpl = pongo2.Must(pongo2.FromString(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{ title }}</title>
</head>
<body>
{{ body|safe }}
</body>
</html>
`))

var indexTpl = pongo2.Must(pongo2.FromString(`<div id="wrapper">
<h1>{{ title }}</h1>
<form action="p/" method="get" onsubmit="location.href = 'p/' + encodeURIComponent(this.padname.value); return false;">
<input type="text" name="padname" id="padname" maxlength="50" autofocus>
<button type="submit">OK</button>
</form>
<a href="new" id="newpad">New Pad</a>
</div>`))

var userlistTpl = pongo2.Must(pongo2.FromString(`<div id="users">
<div id="myuser">
<input type="text" id="myusernameedit" value="{{ user_name }}"{% if name_locked %} disabled{% endif %}>
</div>
</div>`))

var padTpl = pongo2.Must(pongo2.FromString(`<div id="editorcontainer">
{{ userlist|safe }}
<textarea id="editor"{% if read_only %} readonly{% endif %}></textarea>
</div>
<script>
(function () {
  var padId = {{ pad_id_json|safe }};
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(scheme + location.host + "/socket/" + encodeURIComponent(padId));
  var editor = document.getElementById("editor");
  var nameEdit = document.getElementById("myusernameedit");
  var rev = 0;
  ws.onmessage = function (ev) {
    var msg = JSON.parse(ev.data);
    switch (msg.type) {
    case "CLIENT_VARS":
      rev = msg.payload.rev;
      editor.value = msg.payload.text;
      if (msg.payload.ep_guest && msg.payload.ep_guest.isGuest) {
        nameEdit.disabled = true;
      }
      break;
    case "NEW_CHANGES":
      rev = msg.payload.rev;
      editor.value = msg.payload.text;
      break;
    case "ACCEPT_COMMIT":
      rev = msg.payload.rev;
      break;
    }
  };
  editor.addEventListener("input", function () {
    ws.send(JSON.stringify({type: "USER_CHANGES", payload: {baseRev: rev, text: editor.value}}));
  });
  nameEdit.addEventListener("change", function () {
    ws.send(JSON.stringify({type: "USERINFO_UPDATE", payload: {name: nameEdit.value}}));
  });
})();
</script>`))

var permissionDeniedTpl = pongo2.Must(pongo2.FromString(`<div id="permissionDenied">
<h1>Permission denied</h1>
<p>You do not have permission to access this page.</p>
</div>`))

var adminTpl = pongo2.Must(pongo2.FromString(`<div id="admin">
<h1>{{ title }} administration</h1>
<p>Signed in as <strong>{{ username }}</strong>.</p>
<h2>Plugins</h2>
<ul>{% for name in plugins %}<li>{{ name }}</li>{% endfor %}</ul>
<h2>Authentication order</h2>
<ol>{% for name in authenticators %}<li>{{ name }}</li>{% endfor %}</ol>
<h2>Users</h2>
<ul>{% for name in users %}<li>{{ name }}</li>{% empty %}<li>none</li>{% endfor %}</ul>
<p>Loaded pads: {{ loaded_pads }}</p>
</div>`))

// renderBlock executes tpl and passes the result through the block hooks.
func renderBlock(reg *hooks.Registry, r *http.Request, name string, tpl *pongo2.Template, ctx pongo2.Context) (string, error) {
	content, err := tpl.Execute(ctx)
	if err != nil {
		return "", err
	}

	bc := &hooks.BlockContext{
		Request: r,
		Session: session.FromContext(r.Context()),
		Content: content,
	}
	reg.RenderBlock(name, bc)
	return bc.Content, nil
}

// renderPage wraps body in the layout and writes it with the given status.
func renderPage(w http.ResponseWriter, r *http.Request, status int, title, body string) {
	page, err := layoutTpl.Execute(pongo2.Context{"title": title, "body": body})
	if err != nil {
		logx.FromRequest(r).Error().Err(err).Msg("failed to render page layout")
		resp.RespondError(w, r, errs.Wrap(errs.ErrUnknown, err))
		return
	}
	resp.RespondHTML(w, r, status, page)
}
