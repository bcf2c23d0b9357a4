package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/fontpeek/inspector/internal/surface"
)

func TestShouldBlock(t *testing.T) {
	set := map[string]bool{"image": true, "media": true, "font": true, "stylesheet": true}

	assert.True(t, shouldBlock(set, "Image"))
	assert.True(t, shouldBlock(set, "Media"))
	assert.False(t, shouldBlock(set, "Font"))
	assert.False(t, shouldBlock(set, "Stylesheet"))
	assert.False(t, shouldBlock(set, "Document"))
	assert.False(t, shouldBlock(set, "Script"))

	assert.True(t, shouldBlock(map[string]bool{"images": true}, "Image"))
	assert.False(t, shouldBlock(map[string]bool{}, "Image"))
}

func TestParsePayload(t *testing.T) {
	p, err := parsePayload(`{"kind":"click","steps":[` +
		`{"name":"html","ns":"http://www.w3.org/1999/xhtml","index":1},` +
		`{"name":"body","ns":"http://www.w3.org/1999/xhtml","index":1},` +
		`{"name":"p","ns":"http://www.w3.org/1999/xhtml","index":2}],` +
		`"rect":{"top":10,"left":8,"width":300,"height":20},"scroll":{"x":0,"y":150}}`)
	require.NoError(t, err)
	assert.Equal(t, surface.Click, p.Kind)
	assert.Equal(t, "/html[1]/body[1]/p[2]", p.Path)
	assert.Equal(t, surface.Rect{Top: 10, Left: 8, Width: 300, Height: 20}, p.Rect)
	assert.Equal(t, surface.Scroll{Y: 150}, p.Scroll)
}

func TestParsePayload_Rejects(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"kind":"scroll","steps":[{"name":"html","index":1}]}`,
		`{"kind":"move","steps":[]}`,
		`{"kind":"move","steps":[{"name":"p","index":0}]}`,
		`{"kind":"click","steps":[{"name":"x']|//a['","index":1}]}`,
	} {
		_, err := parsePayload(raw)
		assert.Error(t, err, raw)
	}
}

func TestXPathFor_ForeignNamespaces(t *testing.T) {
	const svgNS = "http://www.w3.org/2000/svg"
	path := xpathFor([]step{
		{Name: "html", NS: xhtmlNS, Index: 1},
		{Name: "body", NS: xhtmlNS, Index: 1},
		{Name: "svg", NS: svgNS, Index: 2},
		{Name: "text", NS: svgNS, Index: 1},
	})
	assert.Equal(t, "/html[1]/body[1]"+
		"/*[local-name()='svg' and namespace-uri()='http://www.w3.org/2000/svg'][2]"+
		"/*[local-name()='text' and namespace-uri()='http://www.w3.org/2000/svg'][1]", path)

	assert.Equal(t, "/html[1]/p[3]", xpathFor([]step{{Name: "html", Index: 1}, {Name: "p", Index: 3}}))
	assert.Contains(t, xpathFor([]step{{Name: "math", NS: "http://www.w3.org/1998/Math/MathML", Index: 1}}),
		"local-name()='math'")
}

func TestEmbeddedScripts(t *testing.T) {
	assert.True(t, strings.HasPrefix(inspectorJS, "(binding) =>"))
	assert.Contains(t, inspectorJS, "addEventListener('click', onClick, true)")
	assert.Contains(t, inspectorJS, "e.preventDefault()")
	assert.Contains(t, inspectorJS, "e.stopPropagation()")
	assert.Contains(t, inspectorJS, "namespaceURI")
	assert.Contains(t, overlayJS, "pointer-events:none")
}
