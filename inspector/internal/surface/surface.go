// Package surface defines the viewing surface capability: a rendered
// document that reports pointer events and exposes its nodes for style
// reads. The Chrome backend and the in-memory fake both implement it.
package surface

import (
	"context"

	"github.com/hazyhaar/fontpeek/inspector/snapshot"
)

// Rect is a rectangle in CSS pixels.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Scroll is the document scroll offset.
type Scroll struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one element of a surface.
type Node interface {
	snapshot.StyleSource
	// BoundingRect returns the viewport-relative box of the node.
	BoundingRect(ctx context.Context) (Rect, error)
}

// EventKind distinguishes pointer events.
type EventKind string

const (
	Move  EventKind = "move"
	Click EventKind = "click"
)

// Event is a pointer event delivered by a surface listener.
type Event struct {
	Kind      EventKind
	SurfaceID string
	Target    Node
	// Rect is the viewport-relative box of Target at event time.
	Rect   Rect
	Scroll Scroll
}

// Handler receives events. It is called from the surface's event goroutine.
type Handler func(ctx context.Context, ev Event)

// Listener is an installed pair of pointer-move and click handlers.
type Listener interface {
	// Detach removes the handlers. It is idempotent.
	Detach() error
}

// Painter draws the highlight box inside a surface.
type Painter interface {
	Paint(ctx context.Context, r Rect) error
	Clear(ctx context.Context) error
}

// Target selects an element for a programmatic event: by CSS selector,
// or by viewport point when Selector is empty.
type Target struct {
	Selector string  `json:"selector,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
}

// Surface is a rendered document subject to inspection.
type Surface interface {
	ID() string
	// Origin is the source location recorded in snapshots: the document URL
	// or snapshot.LocalSource.
	Origin() string
	Primary() bool
	// Listen installs one pointer-move handler and one capture-phase click
	// handler that suppresses the default action and propagation.
	Listen(ctx context.Context, h Handler) (Listener, error)
	Painter() Painter
	// Dispatch synthesises a pointer event on the element at t. It goes
	// through the installed listeners like a real user event.
	Dispatch(ctx context.Context, kind EventKind, t Target) error
	Close() error
}

// Document is markup ready for rendering.
type Document struct {
	Markup string
	// URL is the original location, empty for local files.
	URL    string
	Origin string
	Title  string
}

// Renderer creates surfaces.
type Renderer interface {
	// Primary returns the primary surface, creating it on first use.
	Primary(ctx context.Context) (Surface, error)
	// Render creates a fresh isolated surface holding doc.
	Render(ctx context.Context, doc Document) (Surface, error)
}
