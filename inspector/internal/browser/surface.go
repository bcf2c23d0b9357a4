package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/fontpeek/inspector/internal/surface"
	"github.com/hazyhaar/fontpeek/inspector/snapshot"
)

//go:embed inspector.js
var inspectorJS string

//go:embed overlay.js
var overlayJS string

const bindingName = "__fontpeek_binding"

// ErrDetached is returned for nodes no longer present in their page.
var ErrDetached = errors.New("browser: node is detached from document")

const xhtmlNS = "http://www.w3.org/1999/xhtml"

// step is one ancestor of an event target, outermost first.
type step struct {
	Name  string `json:"name"`
	NS    string `json:"ns"`
	Index int    `json:"index"`
}

// payload is one event reported by inspector.js.
type payload struct {
	Kind   surface.EventKind `json:"kind"`
	Steps  []step            `json:"steps"`
	Path   string            `json:"-"`
	Rect   surface.Rect      `json:"rect"`
	Scroll surface.Scroll    `json:"scroll"`
}

// xpathFor builds an absolute XPath from steps. Unprefixed name tests only
// match XHTML elements, so SVG and MathML steps go through local-name().
func xpathFor(steps []step) string {
	var b strings.Builder
	for _, st := range steps {
		b.WriteByte('/')
		if st.NS == "" || st.NS == xhtmlNS {
			fmt.Fprintf(&b, "%s[%d]", st.Name, st.Index)
			continue
		}
		fmt.Fprintf(&b, "*[local-name()='%s' and namespace-uri()='%s'][%d]", st.Name, st.NS, st.Index)
	}
	return b.String()
}

func parsePayload(raw string) (payload, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, fmt.Errorf("browser: parse binding payload: %w", err)
	}
	if p.Kind != surface.Move && p.Kind != surface.Click {
		return p, fmt.Errorf("browser: unknown event kind %q", p.Kind)
	}
	for _, st := range p.Steps {
		if st.Name == "" || st.Index < 1 || strings.ContainsAny(st.Name+st.NS, "'\"") {
			return p, fmt.Errorf("browser: malformed path step %+v", st)
		}
	}
	if len(p.Steps) == 0 {
		return p, fmt.Errorf("browser: event without element path")
	}
	p.Path = xpathFor(p.Steps)
	return p, nil
}

// Surface is a rod page under inspection.
type Surface struct {
	id      string
	origin  string
	primary bool
	page    *rod.Page
	router  *rod.HijackRouter
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	events chan payload

	mu        sync.Mutex
	handlers  map[int]surface.Handler
	nextH     int
	installed bool
	closed    bool
}

func newSurface(id, origin string, primary bool, page *rod.Page, router *rod.HijackRouter, logger *slog.Logger) (*Surface, error) {
	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(page); err != nil {
		return nil, fmt.Errorf("browser: add binding: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Surface{
		id:       id,
		origin:   origin,
		primary:  primary,
		page:     page,
		router:   router,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan payload, 64),
		handlers: make(map[int]surface.Handler),
	}
	go s.listenBinding()
	go s.deliver()
	return s, nil
}

func (s *Surface) ID() string { return s.id }

func (s *Surface) Origin() string { return s.origin }

func (s *Surface) Primary() bool { return s.primary }

// Page returns the underlying rod page.
func (s *Surface) Page() *rod.Page { return s.page }

// listenBinding receives calls from inspector.js via Runtime.bindingCalled.
func (s *Surface) listenBinding() {
	s.page.Context(s.ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		p, err := parsePayload(e.Payload)
		if err != nil {
			s.logger.Warn("browser: bad event", "surface", s.id, "error", err)
			return
		}
		select {
		case s.events <- p:
		default:
			if p.Kind == surface.Click {
				s.events <- p
				return
			}
			s.logger.Debug("browser: dropped move event", "surface", s.id)
		}
	})()
}

// deliver runs the handlers one event at a time, off the CDP event loop.
func (s *Surface) deliver() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case p := <-s.events:
			s.mu.Lock()
			hs := make([]surface.Handler, 0, len(s.handlers))
			for _, h := range s.handlers {
				hs = append(hs, h)
			}
			s.mu.Unlock()

			ev := surface.Event{
				Kind:      p.Kind,
				SurfaceID: s.id,
				Target:    &Node{page: s.page, path: p.Path},
				Rect:      p.Rect,
				Scroll:    p.Scroll,
			}
			for _, h := range hs {
				h(s.ctx, ev)
			}
		}
	}
}

// Listen injects inspector.js on first use and registers h.
func (s *Surface) Listen(ctx context.Context, h surface.Handler) (surface.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("browser: listen on closed surface %s", s.id)
	}
	if !s.installed {
		if _, err := s.page.Context(ctx).Eval(inspectorJS, bindingName); err != nil {
			return nil, fmt.Errorf("browser: inject inspector: %w", err)
		}
		s.installed = true
	}
	id := s.nextH
	s.nextH++
	s.handlers[id] = h
	s.logger.Debug("browser: listener installed", "surface", s.id)
	return &listener{s: s, id: id}, nil
}

func (s *Surface) removeHandler(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, id)
	if len(s.handlers) > 0 || !s.installed || s.closed {
		return nil
	}
	s.installed = false
	_, err := s.page.Context(s.ctx).Eval(`() => { if (window.__fontpeek) window.__fontpeek.detach(); return true; }`)
	if err != nil {
		return fmt.Errorf("browser: remove inspector: %w", err)
	}
	return nil
}

// Painter returns the in-page highlight box.
func (s *Surface) Painter() surface.Painter { return (*painter)(s) }

// Dispatch moves the mouse over, or clicks, the element at t. The event
// reaches the handlers through inspector.js like a user event.
func (s *Surface) Dispatch(ctx context.Context, kind surface.EventKind, t surface.Target) error {
	page := s.page.Context(ctx)
	if t.Selector != "" {
		els, err := page.Elements(t.Selector)
		if err != nil {
			return fmt.Errorf("browser: query %q: %w", t.Selector, err)
		}
		if len(els) == 0 {
			return fmt.Errorf("browser: no element matches %q", t.Selector)
		}
		el := els.First()
		if kind == surface.Click {
			return el.Click(proto.InputMouseButtonLeft, 1)
		}
		return el.Hover()
	}

	if err := page.Mouse.MoveTo(proto.Point{X: t.X, Y: t.Y}); err != nil {
		return fmt.Errorf("browser: mouse move: %w", err)
	}
	if kind == surface.Click {
		if err := page.Mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("browser: mouse click: %w", err)
		}
	}
	return nil
}

// Close stops event delivery and closes the page.
func (s *Surface) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.handlers = make(map[int]surface.Handler)
	s.mu.Unlock()

	s.cancel()
	if s.router != nil {
		if err := s.router.Stop(); err != nil {
			s.logger.Debug("browser: stop hijack router", "surface", s.id, "error", err)
		}
	}
	if err := s.page.Close(); err != nil {
		return fmt.Errorf("browser: close page: %w", err)
	}
	return nil
}

type listener struct {
	s    *Surface
	id   int
	once sync.Once
	err  error
}

func (l *listener) Detach() error {
	l.once.Do(func() { l.err = l.s.removeHandler(l.id) })
	return l.err
}

type painter Surface

func (p *painter) Paint(ctx context.Context, r surface.Rect) error {
	if _, err := p.page.Context(ctx).Eval(overlayJS, r); err != nil {
		return fmt.Errorf("browser: paint highlight: %w", err)
	}
	return nil
}

func (p *painter) Clear(ctx context.Context) error {
	if _, err := p.page.Context(ctx).Eval(overlayJS, false); err != nil {
		return fmt.Errorf("browser: clear highlight: %w", err)
	}
	return nil
}

// Node is an element addressed by its XPath.
type Node struct {
	page *rod.Page
	path string
}

// Path returns the element's XPath.
func (n *Node) Path() string { return n.path }

func (n *Node) element(ctx context.Context) (*rod.Element, error) {
	els, err := n.page.Context(ctx).ElementsX(n.path)
	if err != nil {
		return nil, fmt.Errorf("browser: resolve %s: %w", n.path, err)
	}
	if len(els) == 0 {
		return nil, ErrDetached
	}
	return els.First(), nil
}

func (n *Node) eval(ctx context.Context, js string, out any, args ...any) error {
	el, err := n.element(ctx)
	if err != nil {
		return err
	}
	res, err := el.Eval(js, args...)
	if err != nil {
		return fmt.Errorf("browser: eval on %s: %w", n.path, err)
	}
	return res.Value.Unmarshal(out)
}

// Describe reads the element's tag, class, id and text.
func (n *Node) Describe(ctx context.Context) (snapshot.Description, error) {
	var d snapshot.Description
	err := n.eval(ctx, `function () {
		return {
			tag: this.tagName,
			className: typeof this.className === 'string' ? this.className : (this.getAttribute('class') || ''),
			id: this.id || '',
			text: this.textContent || '',
		};
	}`, &d)
	return d, err
}

// ComputedStyle reads props from getComputedStyle.
func (n *Node) ComputedStyle(ctx context.Context, props []string) (map[string]string, error) {
	out := make(map[string]string, len(props))
	err := n.eval(ctx, `function (props) {
		const cs = window.getComputedStyle(this);
		const out = {};
		for (const p of props) out[p] = cs.getPropertyValue(p);
		return out;
	}`, &out, props)
	return out, err
}

// BoundingRect returns the viewport-relative box.
func (n *Node) BoundingRect(ctx context.Context) (surface.Rect, error) {
	var r surface.Rect
	err := n.eval(ctx, `function () {
		const r = this.getBoundingClientRect();
		return { top: r.top, left: r.left, width: r.width, height: r.height };
	}`, &r)
	return r, err
}
