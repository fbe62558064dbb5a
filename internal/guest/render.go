package guest

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"epguest/internal/app/hooks"
)

// Block names handled by RenderBlock.
const (
	BlockPermissionDenied = "permissionDenied"
	BlockUserlist         = "userlist"
)

type placement struct {
	anchorID string
	style    string
	prepend  bool
}

var placements = map[string]placement{
	BlockPermissionDenied: {anchorID: "permissionDenied", style: "float: right; padding: 10px", prepend: true},
	BlockUserlist:         {anchorID: "myuser", style: "margin-left: 10px"},
}

// RenderBlock implements hooks.BlockRenderer. It adds a "Log In" button for
// guest sessions and a "Log Out" button for everyone else. Blocks without the
// anchor element are left untouched.
func (p *Plugin) RenderBlock(name string, bc *hooks.BlockContext) error {
	if !p.identity.Enabled() {
		return nil
	}
	pl, ok := placements[name]
	if !ok {
		return nil
	}

	ep, label := EndpointLogout, "Log Out"
	if p.identity.IsGuest(bc.Session) {
		ep, label = EndpointLogin, "Log In"
	}

	requestURI := "/"
	if bc.Request != nil {
		requestURI = bc.Request.URL.RequestURI()
	}

	out, err := insertControl(bc.Content, pl, loginButton(ep, label, requestURI, pl.style))
	if err != nil {
		return err
	}
	bc.Content = out
	return nil
}

// loginButton builds the login or logout control.
func loginButton(ep, label, requestURI, style string) *html.Node {
	href := Endpoint(ep) + "?" + url.Values{"redirect_uri": {requestURI}}.Encode()

	a := &html.Node{
		Type:     html.ElementNode,
		Data:     "a",
		DataAtom: atom.A,
		Attr: []html.Attribute{
			{Key: "href", Val: href},
			{Key: "class", Val: "btn btn-primary"},
			{Key: "data-l10n-id", Val: PluginName + "_" + ep},
		},
	}
	a.AppendChild(&html.Node{Type: html.TextNode, Data: label})

	container := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr: []html.Attribute{
			{Key: "class", Val: "btn-container"},
			{Key: "style", Val: style},
		},
	}
	container.AppendChild(a)
	return container
}

// insertControl parses fragment into a detached tree, inserts control into
// the element with the anchor id and serializes the tree again. A fragment
// without the anchor is returned unchanged.
func insertControl(fragment string, pl placement, control *html.Node) (string, error) {
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}

	nodes, err := html.ParseFragment(strings.NewReader(fragment), root)
	if err != nil {
		return fragment, err
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	anchor := findByID(root, pl.anchorID)
	if anchor == nil {
		return fragment, nil
	}
	if pl.prepend {
		anchor.InsertBefore(control, anchor.FirstChild)
	} else {
		anchor.AppendChild(control)
	}

	var b strings.Builder
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return fragment, err
		}
	}
	return b.String(), nil
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Namespace == "" && a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}
