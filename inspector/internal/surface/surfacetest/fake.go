// Package surfacetest provides an in-memory surface backed by goquery for
// tests that must not start Chrome.
package surfacetest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/fontpeek/inspector/internal/surface"
	"github.com/hazyhaar/fontpeek/inspector/snapshot"
)

// ErrDetached is returned by nodes of a closed surface.
var ErrDetached = errors.New("node is detached from document")

// RowHeight is the height of every element box in the fake layout. Element
// i (document order, starting at body) sits at Top = i*RowHeight.
const RowHeight = 20

// Renderer creates fake surfaces.
type Renderer struct {
	mu       sync.Mutex
	primary  *Surface
	surfaces []*Surface
	seq      int

	// PrimaryMarkup is rendered as the primary surface.
	PrimaryMarkup string
	// BeforeRender, when set, runs before each Render and can block or fail it.
	BeforeRender func(ctx context.Context, doc surface.Document) error
}

// NewRenderer creates a Renderer whose primary surface holds markup.
func NewRenderer(primaryMarkup string) *Renderer {
	return &Renderer{PrimaryMarkup: primaryMarkup}
}

// Primary returns the primary surface.
func (r *Renderer) Primary(context.Context) (surface.Surface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.primary == nil {
		s, err := r.newSurfaceLocked(surface.Document{
			Markup: r.PrimaryMarkup,
			URL:    "about:fontpeek",
			Origin: "about:fontpeek",
		}, true)
		if err != nil {
			return nil, err
		}
		r.primary = s
	}
	return r.primary, nil
}

// Render parses doc into a new surface.
func (r *Renderer) Render(ctx context.Context, doc surface.Document) (surface.Surface, error) {
	if r.BeforeRender != nil {
		if err := r.BeforeRender(ctx, doc); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.newSurfaceLocked(doc, false)
}

func (r *Renderer) newSurfaceLocked(doc surface.Document, primary bool) (*Surface, error) {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc.Markup))
	if err != nil {
		return nil, fmt.Errorf("surfacetest: parse: %w", err)
	}
	r.seq++
	s := &Surface{
		id:       fmt.Sprintf("fake-%d", r.seq),
		doc:      doc,
		primary:  primary,
		dom:      d,
		handlers: make(map[int]surface.Handler),
		styles:   make(map[string]error),
	}
	r.surfaces = append(r.surfaces, s)
	return s, nil
}

// Surfaces returns every surface created so far, primary included.
func (r *Renderer) Surfaces() []*Surface {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Surface(nil), r.surfaces...)
}

// Live returns the non-primary surfaces that have not been closed.
func (r *Renderer) Live() []*Surface {
	var out []*Surface
	for _, s := range r.Surfaces() {
		if !s.primary && !s.Closed() {
			out = append(out, s)
		}
	}
	return out
}

// Surface is an in-memory document.
type Surface struct {
	id      string
	doc     surface.Document
	primary bool
	dom     *goquery.Document

	mu       sync.Mutex
	handlers map[int]surface.Handler
	nextH    int
	closed   bool
	painted  []surface.Rect
	cleared  int
	scroll   surface.Scroll
	styles   map[string]error
}

func (s *Surface) ID() string { return s.id }

func (s *Surface) Origin() string { return s.doc.Origin }

func (s *Surface) Primary() bool { return s.primary }

func (s *Surface) Painter() surface.Painter { return (*painter)(s) }

// Document returns the document the surface was rendered from.
func (s *Surface) Document() surface.Document { return s.doc }

// DOM returns the parsed document.
func (s *Surface) DOM() *goquery.Document { return s.dom }

// Listen registers h as both pointer-move and click handler.
func (s *Surface) Listen(_ context.Context, h surface.Handler) (surface.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("surfacetest: listen on closed surface %s", s.id)
	}
	id := s.nextH
	s.nextH++
	s.handlers[id] = h
	return &listener{s: s, id: id}, nil
}

// Listeners returns the number of installed listeners.
func (s *Surface) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

// SetScroll sets the scroll offset reported with events.
func (s *Surface) SetScroll(sc surface.Scroll) {
	s.mu.Lock()
	s.scroll = sc
	s.mu.Unlock()
}

// FailStyle makes ComputedStyle fail with err for nodes matching selector.
func (s *Surface) FailStyle(selector string, err error) {
	s.mu.Lock()
	s.styles[selector] = err
	s.mu.Unlock()
}

// Painted returns every rectangle painted so far.
func (s *Surface) Painted() []surface.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]surface.Rect(nil), s.painted...)
}

// Cleared returns how many times the highlight was cleared.
func (s *Surface) Cleared() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleared
}

// Closed reports whether Close was called.
func (s *Surface) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Dispatch delivers an event to every installed handler, synchronously.
func (s *Surface) Dispatch(ctx context.Context, kind surface.EventKind, t surface.Target) error {
	sel, index, err := s.find(t)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("surfacetest: dispatch on closed surface %s", s.id)
	}
	hs := make([]surface.Handler, 0, len(s.handlers))
	for _, h := range s.handlers {
		hs = append(hs, h)
	}
	scroll := s.scroll
	s.mu.Unlock()

	n := &Node{s: s, sel: sel, index: index}
	ev := surface.Event{
		Kind:      kind,
		SurfaceID: s.id,
		Target:    n,
		Rect:      n.rect(),
		Scroll:    scroll,
	}
	for _, h := range hs {
		h(ctx, ev)
	}
	return nil
}

// Close detaches every node and drops the handlers.
func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.handlers = make(map[int]surface.Handler)
	return nil
}

func (s *Surface) find(t surface.Target) (*goquery.Selection, int, error) {
	all := s.dom.Find("body, body *")
	if t.Selector != "" {
		sel := s.dom.Find(t.Selector).First()
		if sel.Length() == 0 {
			return nil, 0, fmt.Errorf("surfacetest: no element matches %q", t.Selector)
		}
		return sel, all.IndexOfSelection(sel), nil
	}
	i := int(t.Y) / RowHeight
	if i < 0 || i >= all.Length() {
		return nil, 0, fmt.Errorf("surfacetest: no element at (%v, %v)", t.X, t.Y)
	}
	return all.Eq(i), i, nil
}

type listener struct {
	s    *Surface
	id   int
	once sync.Once
}

func (l *listener) Detach() error {
	l.once.Do(func() {
		l.s.mu.Lock()
		delete(l.s.handlers, l.id)
		l.s.mu.Unlock()
	})
	return nil
}

type painter Surface

func (p *painter) Paint(_ context.Context, r surface.Rect) error {
	s := (*Surface)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.painted = append(s.painted, r)
	return nil
}

func (p *painter) Clear(context.Context) error {
	s := (*Surface)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
	return nil
}

// Node is an element of a fake surface.
type Node struct {
	s     *Surface
	sel   *goquery.Selection
	index int
}

func (n *Node) rect() surface.Rect {
	return surface.Rect{Top: float64(n.index * RowHeight), Left: 8, Width: 400, Height: RowHeight}
}

// BoundingRect returns the fake layout box.
func (n *Node) BoundingRect(context.Context) (surface.Rect, error) {
	if n.s.Closed() {
		return surface.Rect{}, ErrDetached
	}
	return n.rect(), nil
}

// Describe returns the element's tag, class, id and text.
func (n *Node) Describe(context.Context) (snapshot.Description, error) {
	if n.s.Closed() {
		return snapshot.Description{}, ErrDetached
	}
	class, _ := n.sel.Attr("class")
	id, _ := n.sel.Attr("id")
	return snapshot.Description{
		Tag:       strings.ToUpper(goquery.NodeName(n.sel)),
		ClassName: class,
		ID:        id,
		Text:      n.sel.Text(),
	}, nil
}

// ComputedStyle resolves props from inline styles, walking up the tree for
// inherited values, then tag defaults.
func (n *Node) ComputedStyle(_ context.Context, props []string) (map[string]string, error) {
	n.s.mu.Lock()
	closed := n.s.closed
	var injected error
	for sel, err := range n.s.styles {
		if n.sel.Is(sel) {
			injected = err
			break
		}
	}
	n.s.mu.Unlock()
	if closed {
		return nil, ErrDetached
	}
	if injected != nil {
		return nil, injected
	}

	out := make(map[string]string, len(props))
	for _, p := range props {
		out[p] = resolve(n.sel, p)
	}
	return out, nil
}

var defaults = map[string]string{
	"font-family": `"Times New Roman"`,
	"font-size":   "16px",
	"font-weight": "400",
	"font-style":  "normal",
	"line-height": "normal",
	"color":       "rgb(0, 0, 0)",
}

var tagDefaults = map[string]map[string]string{
	"h1":     {"font-size": "32px", "font-weight": "700"},
	"h2":     {"font-size": "24px", "font-weight": "700"},
	"h3":     {"font-size": "18.72px", "font-weight": "700"},
	"b":      {"font-weight": "700"},
	"strong": {"font-weight": "700"},
	"em":     {"font-style": "italic"},
	"i":      {"font-style": "italic"},
	"code":   {"font-family": "monospace", "font-size": "13.3333px"},
	"pre":    {"font-family": "monospace", "font-size": "13.3333px"},
}

func resolve(sel *goquery.Selection, prop string) string {
	for cur := sel; cur.Length() > 0; cur = cur.Parent() {
		if v, ok := inline(cur, prop); ok {
			return v
		}
		if td, ok := tagDefaults[goquery.NodeName(cur)]; ok {
			if v, ok := td[prop]; ok {
				return v
			}
		}
	}
	return defaults[prop]
}

func inline(sel *goquery.Selection, prop string) (string, bool) {
	style, ok := sel.Attr("style")
	if !ok {
		return "", false
	}
	for _, decl := range strings.Split(style, ";") {
		k, v, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(k), prop) {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}
