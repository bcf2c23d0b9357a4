// Package overlay keeps the single highlight box in sync with the element
// under the pointer.
package overlay

import (
	"context"
	"sync"

	"github.com/hazyhaar/fontpeek/inspector/internal/surface"
)

// State is the last highlight shown, in page coordinates.
type State struct {
	Rect    surface.Rect `json:"rect"`
	Visible bool         `json:"visible"`
}

// ToPage converts a viewport-relative rectangle to page coordinates.
func ToPage(r surface.Rect, sc surface.Scroll) surface.Rect {
	return surface.Rect{
		Top:    r.Top + sc.Y,
		Left:   r.Left + sc.X,
		Width:  r.Width,
		Height: r.Height,
	}
}

// Overlay draws through the painter of the currently bound surface.
type Overlay struct {
	mu      sync.Mutex
	painter surface.Painter
	state   State
}

// New creates an unbound, hidden Overlay.
func New() *Overlay { return &Overlay{} }

// Bind switches the overlay to p. The previous painter is cleared so no
// stale box stays on a retired surface.
func (o *Overlay) Bind(ctx context.Context, p surface.Painter) {
	o.mu.Lock()
	old := o.painter
	o.painter = p
	o.state = State{}
	o.mu.Unlock()

	if old != nil && old != p {
		_ = old.Clear(ctx)
	}
}

// MoveTo shows the box at the page-relative rectangle r.
func (o *Overlay) MoveTo(ctx context.Context, r surface.Rect) error {
	o.mu.Lock()
	o.state = State{Rect: r, Visible: true}
	p := o.painter
	o.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.Paint(ctx, r)
}

// Hide makes the box invisible. The last rectangle is kept.
func (o *Overlay) Hide(ctx context.Context) error {
	o.mu.Lock()
	o.state.Visible = false
	p := o.painter
	o.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.Clear(ctx)
}

// State returns the last highlight state.
func (o *Overlay) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}
