// Package snapshot captures the resolved font styling of one element as an
// immutable FontSnapshot and renders it as a results panel.
package snapshot

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hazyhaar/fontpeek/inspector/internal/errkind"
)

// PreviewLimit is the number of characters kept in a text preview.
const PreviewLimit = 50

// Ellipsis is appended to previews cut at PreviewLimit.
const Ellipsis = "..."

// LocalSource is the source location of documents read from a file.
const LocalSource = "local"

// Properties lists the computed style properties read for every snapshot,
// in the order they appear in the derived CSS.
var Properties = []string{
	"font-family",
	"font-size",
	"font-weight",
	"font-style",
	"line-height",
	"color",
}

// FontSnapshot is the styling record of one inspected element. It is a value
// type: copies are handed out and never modified after Extract returns.
type FontSnapshot struct {
	TagName        string    `json:"tagName"`
	ClassName      string    `json:"className"`
	ID             string    `json:"id"`
	TextPreview    string    `json:"textPreview"`
	FontFamily     string    `json:"fontFamily"`
	FontSize       string    `json:"fontSize"`
	FontWeight     string    `json:"fontWeight"`
	FontStyle      string    `json:"fontStyle"`
	LineHeight     string    `json:"lineHeight"`
	Color          string    `json:"color"`
	DerivedCSSText string    `json:"derivedCSSText"`
	CapturedAt     time.Time `json:"capturedAt"`
	SourceLocation string    `json:"sourceLocation"`
}

// IsZero reports whether s has never been filled by Extract.
func (s FontSnapshot) IsZero() bool { return s.CapturedAt.IsZero() && s.TagName == "" }

// MarshalIndent returns the two-space indented JSON form used for exports.
func (s FontSnapshot) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Description is the structural part of a node: what it is, not how it looks.
type Description struct {
	Tag       string `json:"tag"`
	ClassName string `json:"className"`
	ID        string `json:"id"`
	Text      string `json:"text"`
}

// StyleSource gives read access to one node of a rendered document.
type StyleSource interface {
	Describe(ctx context.Context) (Description, error)
	ComputedStyle(ctx context.Context, props []string) (map[string]string, error)
}

// Extractor turns a StyleSource into a FontSnapshot.
type Extractor struct {
	now func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock sets the clock used for CapturedAt.
func WithClock(now func() time.Time) Option {
	return func(x *Extractor) { x.now = now }
}

// NewExtractor creates an Extractor using the wall clock by default.
func NewExtractor(opts ...Option) *Extractor {
	x := &Extractor{now: time.Now}
	for _, o := range opts {
		o(x)
	}
	return x
}

// Extract reads node and builds a snapshot tagged with source. Any failure
// to read the node is returned as an errkind.Extraction error.
func (x *Extractor) Extract(ctx context.Context, node StyleSource, source string) (FontSnapshot, error) {
	if node == nil {
		return FontSnapshot{}, errkind.Errorf(errkind.Extraction, "snapshot: extract", "no element under pointer")
	}

	desc, err := node.Describe(ctx)
	if err != nil {
		return FontSnapshot{}, errkind.New(errkind.Extraction, "snapshot: describe", err)
	}
	style, err := node.ComputedStyle(ctx, Properties)
	if err != nil {
		return FontSnapshot{}, errkind.New(errkind.Extraction, "snapshot: computed style", err)
	}

	snap := FontSnapshot{
		TagName:        strings.ToLower(desc.Tag),
		ClassName:      orNone(desc.ClassName),
		ID:             orNone(desc.ID),
		TextPreview:    Preview(desc.Text),
		FontFamily:     style["font-family"],
		FontSize:       style["font-size"],
		FontWeight:     style["font-weight"],
		FontStyle:      style["font-style"],
		LineHeight:     style["line-height"],
		Color:          style["color"],
		CapturedAt:     x.now().UTC().Truncate(time.Millisecond),
		SourceLocation: source,
	}
	snap.DerivedCSSText = DerivedCSS(snap)
	return snap, nil
}

// Preview trims text and cuts it to PreviewLimit characters. The ellipsis is
// added only when the trimmed text is strictly longer than the limit.
func Preview(text string) string {
	t := strings.TrimSpace(text)
	if utf8.RuneCountInString(t) <= PreviewLimit {
		return t
	}
	r := []rune(t)
	return string(r[:PreviewLimit]) + Ellipsis
}

// DerivedCSS renders the six font properties of s as CSS declarations.
func DerivedCSS(s FontSnapshot) string {
	var b strings.Builder
	for i, v := range []string{s.FontFamily, s.FontSize, s.FontWeight, s.FontStyle, s.LineHeight, s.Color} {
		b.WriteString(Properties[i])
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString(";\n")
	}
	return strings.TrimSpace(b.String())
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
