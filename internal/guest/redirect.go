package guest

import (
	"net/url"
	"strings"
)

// DefaultRedirect is where visitors go when no usable redirect_uri was given.
// Relative to an endpoint it points at the parent of /ep_guest/, i.e. the site root.
const DefaultRedirect = ".."

// redirectBase is the fixed trusted base used to resolve redirect targets.
var redirectBase = &url.URL{Scheme: "http", Host: "_", Path: "/" + url.PathEscape(PluginName) + "/"}

// SanitizeRedirect turns an untrusted redirect_uri into a relative target
// that cannot leave the site. The input is resolved against /ep_guest/ on a
// placeholder host; only its path, query and fragment survive, prefixed with
// "..". Empty or unparsable input yields DefaultRedirect.
//
//	http://evil.example/x   -> ../x
//	/legit/path?q=1#frag    -> ../legit/path?q=1#frag
func SanitizeRedirect(raw string) string {
	target, _ := sanitizeRedirect(raw)
	return target
}

// sanitizeRedirect also reports whether the default was used.
func sanitizeRedirect(raw string) (string, bool) {
	if raw == "" {
		return DefaultRedirect, true
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return DefaultRedirect, true
	}
	resolved := redirectBase.ResolveReference(ref)

	path := resolved.EscapedPath()
	if path == "" {
		path = "/"
	}

	var b strings.Builder
	b.WriteString(DefaultRedirect)
	b.WriteString(path)
	if resolved.RawQuery != "" || resolved.ForceQuery {
		b.WriteByte('?')
		b.WriteString(resolved.RawQuery)
	}
	if resolved.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(resolved.EscapedFragment())
	}
	return b.String(), false
}
