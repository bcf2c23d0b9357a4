package snapshot

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRows_Order(t *testing.T) {
	want := []string{"Tag", "Class", "ID", "Text", "Font", "Size", "Weight", "Style", "Line Height", "Color"}
	rows := Rows(FontSnapshot{TagName: "h1"})
	require.Len(t, rows, len(want))
	for i, r := range rows {
		assert.Equal(t, want[i], r.Label)
	}
	assert.Equal(t, "<h1>", rows[0].Value)
}

func TestRenderer_HTML(t *testing.T) {
	snap, err := NewExtractor().Extract(context.Background(), paragraph(), LocalSource)
	require.NoError(t, err)

	out := NewRenderer().HTML(snap)

	assert.Contains(t, out, "<b>Tag:</b> &lt;p&gt;<br>")
	assert.Contains(t, out, "<b>Line Height:</b> 24px<br>")
	assert.Contains(t, out, `color: #333333`)
	assert.Contains(t, out, "<pre>font-family:")

	labels := []string{"Tag:", "Class:", "ID:", "Text:", "Font:", "Size:", "Weight:", "Style:", "Line Height:", "Color:", "<pre>"}
	last := -1
	for _, l := range labels {
		i := strings.Index(out, l)
		if i <= last {
			t.Fatalf("%q out of order in %s", l, out)
		}
		last = i
	}
}

func TestRenderer_HTMLEscapesPageContent(t *testing.T) {
	n := paragraph()
	n.desc.Text = `<script>alert(1)</script>`
	n.desc.ClassName = `"><img src=x onerror=alert(1)>`
	snap, err := NewExtractor().Extract(context.Background(), n, LocalSource)
	require.NoError(t, err)

	out := NewRenderer().HTML(snap)
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<img")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestRenderer_Markdown(t *testing.T) {
	snap, err := NewExtractor().Extract(context.Background(), paragraph(), LocalSource)
	require.NoError(t, err)

	p := NewRenderer().Render(snap)
	assert.Contains(t, p.Markdown, "**Tag:**")
	assert.Contains(t, p.Markdown, "font-size: 16px;")
	assert.NotContains(t, p.Markdown, "<b>")
}

func TestTerminal(t *testing.T) {
	snap, err := NewExtractor().Extract(context.Background(), paragraph(), LocalSource)
	require.NoError(t, err)

	out := Terminal(snap)
	for _, want := range []string{"Tag:", "<p>", "Line Height:", "24px", "rgb(51, 51, 51)", "font-family:"} {
		assert.Contains(t, out, want)
	}
}

func TestHexColor(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"rgb(51, 51, 51)", "#333333", true},
		{"rgba(255, 0, 128, 0.5)", "#ff0080", true},
		{"rgb(0 128 255 / 50%)", "#0080ff", true},
		{"rgb(100%, 0%, 0%)", "#ff0000", true},
		{"#ABC", "#aabbcc", true},
		{"#1a2b3c", "#1a2b3c", true},
		{"red", "", false},
		{"rgb(1, 2)", "", false},
		{"#zzzzzz", "#zzzzzz", false},
	}
	for _, tc := range cases {
		got, ok := HexColor(tc.in)
		if ok != tc.ok || (tc.ok && got != tc.want) {
			t.Errorf("HexColor(%q): got (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
