// Package session binds pointer handling to the active viewing surface and
// owns the latest snapshot.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/fontpeek/inspector/internal/errkind"
	"github.com/hazyhaar/fontpeek/inspector/internal/overlay"
	"github.com/hazyhaar/fontpeek/inspector/internal/sink"
	"github.com/hazyhaar/fontpeek/inspector/internal/surface"
	"github.com/hazyhaar/fontpeek/inspector/snapshot"
)

// Config for creating a Session.
type Config struct {
	Extractor *snapshot.Extractor
	Renderer  *snapshot.Renderer
	Overlay   *overlay.Overlay
	Sink      sink.Sink
	// EventTimeout bounds the handling of one pointer event. Default: 5s.
	EventTimeout time.Duration
	Logger       *slog.Logger
}

func (c *Config) defaults() {
	if c.Extractor == nil {
		c.Extractor = snapshot.NewExtractor()
	}
	if c.Renderer == nil {
		c.Renderer = snapshot.NewRenderer()
	}
	if c.Overlay == nil {
		c.Overlay = overlay.New()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Sink == nil {
		c.Sink = sink.NewRouter(c.Logger)
	}
	if c.EventTimeout <= 0 {
		c.EventTimeout = 5 * time.Second
	}
}

// Result is the outcome of one click.
type Result struct {
	Snapshot snapshot.FontSnapshot
	Panel    snapshot.Panel
	Err      error
}

// Session is the single active inspection session.
type Session struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	surface  surface.Surface
	listener surface.Listener
	latest   snapshot.FontSnapshot
	panel    snapshot.Panel
	has      bool
	waiters  map[chan Result]struct{}
}

// New creates a detached Session.
func New(cfg Config) *Session {
	cfg.defaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		waiters: make(map[chan Result]struct{}),
	}
}

// Attach removes the current listener, whatever surface it is on, then
// installs exactly one listener on sf and binds the overlay to it.
func (s *Session) Attach(ctx context.Context, sf surface.Surface) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.detachLocked(ctx)

	l, err := sf.Listen(s.ctx, s.handle)
	if err != nil {
		return errkind.New(errkind.Unknown, "session: attach", err)
	}
	s.surface = sf
	s.listener = l
	s.cfg.Overlay.Bind(ctx, sf.Painter())

	s.cfg.Logger.Info("session: attached", "surface", sf.ID(), "origin", sf.Origin(), "primary", sf.Primary())
	return nil
}

// Detach removes the listener and unbinds the overlay.
func (s *Session) Detach(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachLocked(ctx)
}

func (s *Session) detachLocked(ctx context.Context) {
	if s.listener != nil {
		if err := s.listener.Detach(); err != nil {
			s.cfg.Logger.Warn("session: detach listener", "surface", s.surface.ID(), "error", err)
		}
		s.listener = nil
	}
	if s.surface != nil {
		s.cfg.Overlay.Bind(ctx, nil)
		s.surface = nil
	}
}

// Surface returns the attached surface, or nil.
func (s *Session) Surface() surface.Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface
}

// Latest returns the latest snapshot and whether one exists.
func (s *Session) Latest() (snapshot.FontSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.has
}

// Panel returns the rendered panel of the latest snapshot.
func (s *Session) Panel() (snapshot.Panel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panel, s.has
}

// Overlay returns the highlight overlay.
func (s *Session) Overlay() *overlay.Overlay { return s.cfg.Overlay }

// Await registers for the result of the next click. Call cancel when the
// result is no longer wanted.
func (s *Session) Await() (result <-chan Result, cancel func()) {
	ch := make(chan Result, 1)
	s.mu.Lock()
	s.waiters[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		delete(s.waiters, ch)
		s.mu.Unlock()
	}
}

// Close detaches and stops event handling.
func (s *Session) Close() {
	s.Detach(context.Background())
	s.cancel()
}

func (s *Session) handle(ctx context.Context, ev surface.Event) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.EventTimeout)
	defer cancel()

	switch ev.Kind {
	case surface.Move:
		s.onMove(ctx, ev)
	case surface.Click:
		s.onClick(ctx, ev)
	}
}

// current reports whether ev comes from the attached surface. Must hold mu.
func (s *Session) current(ev surface.Event) bool {
	return s.surface != nil && s.surface.ID() == ev.SurfaceID
}

func (s *Session) onMove(ctx context.Context, ev surface.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(ev) {
		return
	}

	rect := ev.Rect
	if rect == (surface.Rect{}) && ev.Target != nil {
		r, err := ev.Target.BoundingRect(ctx)
		if err != nil {
			s.cfg.Logger.Debug("session: bounding rect", "error", err)
			return
		}
		rect = r
	}
	if err := s.cfg.Overlay.MoveTo(ctx, overlay.ToPage(rect, ev.Scroll)); err != nil {
		s.cfg.Logger.Debug("session: paint highlight", "error", err)
	}
}

func (s *Session) onClick(ctx context.Context, ev surface.Event) {
	s.mu.Lock()
	if !s.current(ev) {
		s.mu.Unlock()
		s.cfg.Logger.Debug("session: dropped event from retired surface", "surface", ev.SurfaceID)
		return
	}

	var res Result
	snap, err := s.cfg.Extractor.Extract(ctx, ev.Target, s.surface.Origin())
	if err != nil {
		res.Err = err
	} else {
		s.latest = snap
		s.panel = s.cfg.Renderer.Render(snap)
		s.has = true
		res.Snapshot, res.Panel = s.latest, s.panel
		if err := s.cfg.Overlay.Hide(ctx); err != nil {
			s.cfg.Logger.Debug("session: hide highlight", "error", err)
		}
	}

	waiters := make([]chan Result, 0, len(s.waiters))
	for ch := range s.waiters {
		waiters = append(waiters, ch)
		delete(s.waiters, ch)
	}
	s.mu.Unlock()

	if res.Err != nil {
		s.cfg.Logger.Warn("session: extraction failed", "surface", ev.SurfaceID, "error", res.Err)
		s.cfg.Sink.SendStatus(ctx, sink.NewStatus(sink.Error, "Error: "+errkind.Message(res.Err)))
	} else {
		s.cfg.Logger.Info("session: inspected", "tag", snap.TagName, "source", snap.SourceLocation)
		if err := s.cfg.Sink.SendSnapshot(ctx, snap); err != nil {
			s.cfg.Logger.Warn("session: send snapshot", "error", err)
		}
	}

	for _, ch := range waiters {
		ch <- res
	}
}
