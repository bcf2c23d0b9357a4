package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/fontpeek/inspector/internal/errkind"
)

func TestValidate(t *testing.T) {
	good := map[string]string{
		"https://example.com":       "https://example.com",
		" http://example.com/a?b ":  "http://example.com/a?b",
		"https://example.com:8443/": "https://example.com:8443/",
	}
	for in, want := range good {
		got, err := Validate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, in := range []string{"", "example.com", "javascript:alert(1)", "file:///etc/passwd", "https://"} {
		_, err := Validate(in)
		assert.True(t, errkind.Is(err, errkind.Validation), in)
		assert.Equal(t, "Please enter a valid URL", errkind.Message(err))
	}
}

func TestPrepareRemote(t *testing.T) {
	markup := `<html><head><base href="https://evil.test/"><title> Fonts </title></head><body><p>x</p></body></html>`

	out, title, err := PrepareRemote(markup, "https://example.com/page")
	require.NoError(t, err)
	assert.Equal(t, "Fonts", title)
	assert.Equal(t, 1, strings.Count(out, "<base"))
	assert.NotContains(t, out, "evil.test")
	assert.Contains(t, out, `<base href="https://example.com/page" target="_blank"/>`)
	assert.Contains(t, out, InspectorCSS)

	head := out[strings.Index(out, "<head>"):]
	assert.True(t, strings.HasPrefix(head, `<head><base href=`), head)
}

func TestPrepareRemote_Fragment(t *testing.T) {
	out, title, err := PrepareRemote(`<p>bare</p>`, "https://example.com")
	require.NoError(t, err)
	assert.Empty(t, title)
	assert.Contains(t, out, `<base href="https://example.com"`)
	assert.Contains(t, out, "<p>bare</p>")
}

func TestRequestURL(t *testing.T) {
	p := NewProxyClient("https://proxy.test/get")
	assert.Equal(t, "https://proxy.test/get?url=https%3A%2F%2Fexample.com%2Fa%3Fb%3D1", p.RequestURL("https://example.com/a?b=1"))

	p = NewProxyClient("https://proxy.test/get?charset=utf-8")
	assert.Equal(t, "https://proxy.test/get?charset=utf-8&url=https%3A%2F%2Fexample.com", p.RequestURL("https://example.com"))

	assert.True(t, strings.HasPrefix(NewProxyClient("").RequestURL("x"), DefaultProxyEndpoint+"?url="))
}
