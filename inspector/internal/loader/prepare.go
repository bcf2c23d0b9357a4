package loader

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/fontpeek/inspector/internal/errkind"
)

// InspectorCSS is injected into remote documents.
const InspectorCSS = `* { cursor: crosshair !important; } :hover { outline: 2px dashed #4a6fa5 !important; }`

// Validate checks a user-entered URL: non-empty after trimming, http or
// https, with a host. It returns the trimmed URL.
func Validate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", errkind.Errorf(errkind.Validation, "loader: validate", "Please enter a valid URL")
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", errkind.Errorf(errkind.Validation, "loader: validate", "Please enter a valid URL")
	}
	return s, nil
}

// PrepareRemote injects a base element pointing at pageURL and the
// inspector style at the top of head. It returns the rewritten document and
// its title.
func PrepareRemote(markup, pageURL string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", "", errkind.New(errkind.Parse, "loader: parse markup", err)
	}

	base := &html.Node{
		Type:     html.ElementNode,
		Data:     "base",
		DataAtom: atom.Base,
		Attr: []html.Attribute{
			{Key: "href", Val: pageURL},
			{Key: "target", Val: "_blank"},
		},
	}
	style := &html.Node{
		Type:     html.ElementNode,
		Data:     "style",
		DataAtom: atom.Style,
		Attr:     []html.Attribute{{Key: "data-fontpeek", Val: "inspector"}},
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: InspectorCSS})

	head := doc.Find("head").First()
	head.Find("base").Remove()
	head.PrependNodes(base, style)

	out, err := doc.Html()
	if err != nil {
		return "", "", errkind.New(errkind.Parse, "loader: render markup", err)
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	return out, title, nil
}
