package guest

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeRedirect(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ".."},
		{name: "absolute url on another host", in: "http://evil.example/x", want: "../x"},
		{name: "protocol relative", in: "//evil.example/x", want: "../x"},
		{name: "https with credentials", in: "https://user:pw@evil.example:8443/a/b?c=d", want: "../a/b?c=d"},
		{name: "absolute path with query and fragment", in: "/legit/path?q=1#frag", want: "../legit/path?q=1#frag"},
		{name: "root", in: "/", want: "../"},
		{name: "host only", in: "http://evil.example", want: "../"},
		{name: "relative path stays under the plugin prefix", in: "pad/1", want: "../ep_guest/pad/1"},
		{name: "dot segments cannot climb above the root", in: "/../../etc/passwd", want: "../etc/passwd"},
		{name: "opaque scheme", in: "javascript:alert(1)", want: "../"},
		{name: "malformed escape", in: "/p/%zz", want: ".."},
		{name: "malformed host", in: "http://[::1", want: ".."},
		{name: "encoded path is kept encoded", in: "/p/a%20b", want: "../p/a%20b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeRedirect(tt.in))
		})
	}
}

func TestSanitizedTargetsStayOnSite(t *testing.T) {
	base, err := url.Parse("https://pads.example.com/ep_guest/logout")
	require.NoError(t, err)

	inputs := []string{
		"http://evil.example/x",
		"//evil.example",
		"https://evil.example/%2F%2Fevil.example",
		`\\evil.example\x`,
		"/\\evil.example",
		"  http://evil.example/",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			ref, err := url.Parse(SanitizeRedirect(in))
			require.NoError(t, err)
			got := base.ResolveReference(ref)
			assert.Equal(t, "pads.example.com", got.Host)
			assert.Equal(t, "https", got.Scheme)
		})
	}
}

func TestSanitizeRedirectResolvesToOriginalPath(t *testing.T) {
	base, err := url.Parse("http://localhost:9001/ep_guest/forceauth?redirect_uri=%2Fpad%2F123")
	require.NoError(t, err)

	ref, err := url.Parse(SanitizeRedirect("/pad/123"))
	require.NoError(t, err)
	assert.Equal(t, "/pad/123", base.ResolveReference(ref).RequestURI())
}
