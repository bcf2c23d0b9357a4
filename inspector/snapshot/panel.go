package snapshot

import (
	"fmt"
	"html"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/charmbracelet/lipgloss"
	"github.com/microcosm-cc/bluemonday"
)

// Row is one label/value pair of the results panel.
type Row struct {
	Label string
	Value string
}

// Rows returns the panel rows in display order.
func Rows(s FontSnapshot) []Row {
	return []Row{
		{"Tag", "<" + s.TagName + ">"},
		{"Class", s.ClassName},
		{"ID", s.ID},
		{"Text", s.TextPreview},
		{"Font", s.FontFamily},
		{"Size", s.FontSize},
		{"Weight", s.FontWeight},
		{"Style", s.FontStyle},
		{"Line Height", s.LineHeight},
		{"Color", s.Color},
	}
}

// Panel is a snapshot rendered for the three front ends.
type Panel struct {
	HTML     string `json:"html"`
	Markdown string `json:"markdown"`
	Text     string `json:"-"`
}

// Renderer builds panels. It is safe for concurrent use.
type Renderer struct {
	policy *bluemonday.Policy
	md     *converter.Converter
}

// NewRenderer creates a Renderer with the panel sanitisation policy.
func NewRenderer() *Renderer {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "br", "pre", "div", "span")
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("div", "span")
	p.AllowStyles("color").OnElements("span")

	return &Renderer{
		policy: p,
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

// Render produces all forms of the panel for s.
func (r *Renderer) Render(s FontSnapshot) Panel {
	h := r.HTML(s)
	return Panel{
		HTML:     h,
		Markdown: r.markdown(h, s),
		Text:     Terminal(s),
	}
}

// HTML renders the sanitised results panel.
func (r *Renderer) HTML(s FontSnapshot) string {
	var b strings.Builder
	b.WriteString(`<div class="font-info">`)
	for _, row := range Rows(s) {
		fmt.Fprintf(&b, "<b>%s:</b> ", row.Label)
		if row.Label == "Color" {
			swatch := s.Color
			if hex, ok := HexColor(s.Color); ok {
				swatch = hex
			}
			fmt.Fprintf(&b, `<span class="swatch" style="color: %s">&#9632;</span> `, html.EscapeString(swatch))
		}
		b.WriteString(html.EscapeString(row.Value))
		b.WriteString("<br>")
	}
	b.WriteString("</div>")
	fmt.Fprintf(&b, "<pre>%s</pre>", html.EscapeString(s.DerivedCSSText))
	return r.policy.Sanitize(b.String())
}

func (r *Renderer) markdown(panelHTML string, s FontSnapshot) string {
	out, err := r.md.ConvertString(panelHTML)
	if err != nil || strings.TrimSpace(out) == "" {
		return plainMarkdown(s)
	}
	return strings.TrimSpace(out)
}

func plainMarkdown(s FontSnapshot) string {
	var b strings.Builder
	for _, row := range Rows(s) {
		fmt.Fprintf(&b, "- **%s:** %s\n", row.Label, row.Value)
	}
	fmt.Fprintf(&b, "\n```css\n%s\n```", s.DerivedCSSText)
	return b.String()
}

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")).Width(13)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	cssStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).MarginTop(1)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

// Terminal renders the panel for a terminal, with the colour value drawn
// in its own colour.
func Terminal(s FontSnapshot) string {
	lines := make([]string, 0, 12)
	for _, row := range Rows(s) {
		v := valueStyle.Render(row.Value)
		if row.Label == "Color" {
			if hex, ok := HexColor(s.Color); ok {
				v = lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("██") + " " + v
			}
		}
		lines = append(lines, labelStyle.Render(row.Label+":")+v)
	}
	lines = append(lines, cssStyle.Render(s.DerivedCSSText))
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
