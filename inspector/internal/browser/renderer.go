package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/fontpeek/inspector/internal/idgen"
	"github.com/hazyhaar/fontpeek/inspector/internal/surface"
)

// PrimaryOrigin is the origin of a primary surface built from markup.
const PrimaryOrigin = "about:fontpeek"

// DefaultPrimaryMarkup is shown when no primary URL is configured.
const DefaultPrimaryMarkup = `<!DOCTYPE html>
<html><head><title>fontpeek</title></head>
<body style="font-family: system-ui, sans-serif; margin: 2rem">
<h1>fontpeek</h1>
<p>Hover any element to highlight it, click it to read its font.</p>
<p><code>Load a URL or an HTML file to inspect another document.</code></p>
</body></html>`

// Renderer opens rod pages as surfaces.
type Renderer struct {
	mgr           *Manager
	primaryURL    string
	primaryMarkup string
	loadTimeout   time.Duration
	ids           idgen.Generator
	logger        *slog.Logger

	mu      sync.Mutex
	primary *Surface
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithPrimaryURL navigates the primary surface to u.
func WithPrimaryURL(u string) RendererOption {
	return func(r *Renderer) { r.primaryURL = u }
}

// WithPrimaryMarkup sets the markup of the primary surface when no URL is set.
func WithPrimaryMarkup(html string) RendererOption {
	return func(r *Renderer) { r.primaryMarkup = html }
}

// WithLoadTimeout bounds navigation and load waits. Default: 30s.
func WithLoadTimeout(d time.Duration) RendererOption {
	return func(r *Renderer) { r.loadTimeout = d }
}

// WithIDGenerator sets the surface ID generator.
func WithIDGenerator(g idgen.Generator) RendererOption {
	return func(r *Renderer) { r.ids = g }
}

// NewRenderer creates a Renderer on top of a started Manager.
func NewRenderer(mgr *Manager, opts ...RendererOption) *Renderer {
	r := &Renderer{
		mgr:           mgr,
		primaryMarkup: DefaultPrimaryMarkup,
		loadTimeout:   30 * time.Second,
		ids:           idgen.Prefixed("sf_", idgen.UUIDv7()),
		logger:        mgr.cfg.Logger,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Primary returns the primary surface, opening it on first use.
func (r *Renderer) Primary(ctx context.Context) (surface.Surface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.primary != nil {
		return r.primary, nil
	}

	b := r.mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("browser: create primary page: %w", err)
	}

	origin := PrimaryOrigin
	if r.primaryURL != "" {
		if err := r.navigate(ctx, page, r.primaryURL); err != nil {
			page.Close()
			return nil, err
		}
		origin = r.primaryURL
	} else if err := r.setContent(ctx, page, r.primaryMarkup); err != nil {
		page.Close()
		return nil, err
	}

	s, err := newSurface(r.ids(), origin, true, page, nil, r.logger)
	if err != nil {
		page.Close()
		return nil, err
	}
	r.primary = s
	r.logger.Info("browser: primary surface ready", "surface", s.id, "origin", origin)
	return s, nil
}

// Render opens a fresh page holding doc.Markup. Remote documents carry
// their own base element, so relative fonts and stylesheets resolve.
func (r *Renderer) Render(ctx context.Context, doc surface.Document) (surface.Surface, error) {
	b := r.mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	var page *rod.Page
	var err error
	if r.mgr.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	var router *rod.HijackRouter
	if len(r.mgr.cfg.ResourceBlocking) > 0 {
		router = applyResourceBlocking(page, r.mgr.cfg.ResourceBlocking)
	}

	if err := r.setContent(ctx, page, doc.Markup); err != nil {
		if router != nil {
			router.Stop()
		}
		page.Close()
		return nil, err
	}

	s, err := newSurface(r.ids(), doc.Origin, false, page, router, r.logger)
	if err != nil {
		page.Close()
		return nil, err
	}
	r.logger.Debug("browser: rendered", "surface", s.id, "origin", doc.Origin, "size", len(doc.Markup))
	return s, nil
}

func (r *Renderer) navigate(ctx context.Context, page *rod.Page, u string) error {
	navCtx, cancel := context.WithTimeout(ctx, r.loadTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(u); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", u, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		r.logger.Warn("browser: wait load timeout", "url", u, "error", err)
	}
	return nil
}

func (r *Renderer) setContent(ctx context.Context, page *rod.Page, markup string) error {
	loadCtx, cancel := context.WithTimeout(ctx, r.loadTimeout)
	defer cancel()

	if err := page.Context(loadCtx).SetDocumentContent(markup); err != nil {
		return fmt.Errorf("browser: set document content: %w", err)
	}
	if err := page.Context(loadCtx).WaitLoad(); err != nil {
		r.logger.Warn("browser: wait load timeout", "error", err)
	}
	return nil
}

// Close closes the primary surface.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.primary == nil {
		return nil
	}
	err := r.primary.Close()
	r.primary = nil
	return err
}
