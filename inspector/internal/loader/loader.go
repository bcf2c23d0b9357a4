// Package loader obtains documents from the live page, a remote URL or a
// local file, renders them into a viewing surface and re-attaches the
// inspection session to it.
//
// Only one non-primary surface exists at a time. A new load supersedes the
// one in flight: the older load's context is cancelled and its result, if
// it still arrives, is dropped.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hazyhaar/fontpeek/inspector/internal/errkind"
	"github.com/hazyhaar/fontpeek/inspector/internal/session"
	"github.com/hazyhaar/fontpeek/inspector/internal/sink"
	"github.com/hazyhaar/fontpeek/inspector/internal/surface"
	"github.com/hazyhaar/fontpeek/inspector/snapshot"
)

// State is the load state machine position.
type State string

const (
	Idle       State = "idle"
	Validating State = "validating"
	Fetching   State = "fetching"
	Reading    State = "reading"
	Rendering  State = "rendering"
	Attached   State = "attached"
	Failed     State = "failed"
)

// DefaultMaxFile caps local file reads.
const DefaultMaxFile = 10 << 20

// Config for creating a Loader.
type Config struct {
	Renderer surface.Renderer
	Session  *session.Session
	Proxy    Retriever
	Sink     sink.Sink
	// Timeout bounds a remote load. Default: 30s.
	Timeout time.Duration
	// MaxFile caps local file size in bytes. Default: 10 MiB.
	MaxFile int64
	Logger  *slog.Logger
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxFile <= 0 {
		c.MaxFile = DefaultMaxFile
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Sink == nil {
		c.Sink = sink.NewRouter(c.Logger)
	}
	if c.Proxy == nil {
		c.Proxy = NewProxyClient("", WithProxyLogger(c.Logger))
	}
}

// Loader runs the three load paths.
type Loader struct {
	cfg Config

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	state  State

	// swap serialises retire, render and attach.
	swap   sync.Mutex
	active surface.Surface
}

// New creates a Loader in the idle state.
func New(cfg Config) *Loader {
	cfg.defaults()
	return &Loader{cfg: cfg, state: Idle}
}

// State returns the current state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Active returns the non-primary surface, or nil when inspecting the
// primary surface.
func (l *Loader) Active() surface.Surface {
	l.swap.Lock()
	defer l.swap.Unlock()
	return l.active
}

// begin starts a new load generation and cancels the previous one.
func (l *Loader) begin(parent context.Context, timeout time.Duration) (context.Context, uint64, func()) {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	l.cancel = cancel
	l.mu.Unlock()

	return ctx, gen, func() {
		cancel()
		l.mu.Lock()
		if l.gen == gen {
			l.cancel = nil
		}
		l.mu.Unlock()
	}
}

func (l *Loader) current(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen == gen
}

func (l *Loader) setState(gen uint64, st State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		return
	}
	l.state = st
	l.cfg.Logger.Debug("loader: state", "state", st, "gen", gen)
}

func (l *Loader) status(ctx context.Context, kind sink.StatusKind, msg string) {
	l.cfg.Sink.SendStatus(context.WithoutCancel(ctx), sink.NewStatus(kind, msg))
}

// fail records a failure for gen. Superseded loads report nothing.
func (l *Loader) fail(ctx context.Context, gen uint64, err error) error {
	if !l.current(gen) {
		return errkind.ErrSuperseded
	}
	l.setState(gen, Failed)
	l.cfg.Logger.Warn("loader: load failed", "gen", gen, "error", err)
	msg := errkind.Message(err)
	if !errkind.Is(err, errkind.Validation) {
		msg = "Error: " + msg
	}
	l.status(ctx, sink.Error, msg)
	return err
}

// reject reports invalid input. A load already in flight keeps running
// and owns the state; otherwise the machine ends in Failed.
func (l *Loader) reject(ctx context.Context, err error) error {
	l.mu.Lock()
	if l.cancel == nil {
		l.state = Failed
	}
	l.mu.Unlock()
	l.cfg.Logger.Warn("loader: input rejected", "error", err)
	l.status(ctx, sink.Error, errkind.Message(err))
	return err
}

// LoadLive retires any isolated surface and inspects the primary surface.
func (l *Loader) LoadLive(ctx context.Context) error {
	ctx, gen, done := l.begin(ctx, 0)
	defer done()

	l.swap.Lock()
	defer l.swap.Unlock()

	if !l.current(gen) {
		return errkind.ErrSuperseded
	}
	l.retireLocked(ctx)
	if err := l.attachPrimaryLocked(ctx); err != nil {
		return l.fail(ctx, gen, err)
	}
	l.setState(gen, Attached)
	l.status(ctx, sink.Success, "Inspecting the live page.")
	return nil
}

// LoadURL validates raw, retrieves it through the proxy and renders it.
// On any failure the previous surface stays attached.
func (l *Loader) LoadURL(ctx context.Context, raw string) error {
	pageURL, err := Validate(raw)
	if err != nil {
		return l.reject(ctx, err)
	}

	ctx, gen, done := l.begin(ctx, l.cfg.Timeout)
	defer done()

	l.setState(gen, Fetching)
	l.status(ctx, sink.Loading, "Fetching URL content...")
	markup, err := l.cfg.Proxy.Retrieve(ctx, pageURL)
	if err != nil {
		if !l.current(gen) {
			return errkind.ErrSuperseded
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errkind.Is(err, errkind.Transport) {
			err = errkind.Errorf(errkind.Transport, "loader: fetch", "request timed out")
		}
		return l.fail(ctx, gen, err)
	}

	prepared, title, err := PrepareRemote(markup, pageURL)
	if err != nil {
		return l.fail(ctx, gen, err)
	}

	doc := surface.Document{Markup: prepared, URL: pageURL, Origin: pageURL, Title: title}
	if err := l.renderAndAttach(ctx, gen, doc); err != nil {
		return err
	}
	l.status(ctx, sink.Success, "Successfully loaded: "+pageURL)
	return nil
}

// LoadFile reads r in full and renders its text as is.
func (l *Loader) LoadFile(ctx context.Context, name string, r io.Reader) error {
	ctx, gen, done := l.begin(ctx, 0)
	defer done()

	l.setState(gen, Reading)
	data, err := io.ReadAll(io.LimitReader(r, l.cfg.MaxFile+1))
	if err != nil {
		return l.fail(ctx, gen, errkind.New(errkind.FileRead, "loader: read file", fmt.Errorf("could not read %s: %w", name, err)))
	}
	if int64(len(data)) > l.cfg.MaxFile {
		return l.fail(ctx, gen, errkind.Errorf(errkind.FileRead, "loader: read file", "%s exceeds %d bytes", name, l.cfg.MaxFile))
	}
	if !utf8.Valid(data) {
		return l.fail(ctx, gen, errkind.Errorf(errkind.FileRead, "loader: read file", "%s is not valid UTF-8 text", name))
	}

	doc := surface.Document{Markup: string(data), Origin: snapshot.LocalSource, Title: name}
	if err := l.renderAndAttach(ctx, gen, doc); err != nil {
		return err
	}
	l.cfg.Logger.Info("loader: file loaded", "name", name, "size", len(data))
	l.status(ctx, sink.Success, "HTML file loaded successfully. You can now inspect elements.")
	return nil
}

func (l *Loader) renderAndAttach(ctx context.Context, gen uint64, doc surface.Document) error {
	l.swap.Lock()
	defer l.swap.Unlock()

	if !l.current(gen) {
		return errkind.ErrSuperseded
	}

	l.retireLocked(ctx)
	l.setState(gen, Rendering)

	sf, err := l.cfg.Renderer.Render(ctx, doc)
	if err != nil {
		if perr := l.attachPrimaryLocked(ctx); perr != nil {
			l.cfg.Logger.Error("loader: primary fallback", "error", perr)
		}
		if !l.current(gen) {
			return errkind.ErrSuperseded
		}
		return l.fail(ctx, gen, errkind.New(errkind.Unknown, "loader: render", err))
	}

	if !l.current(gen) {
		sf.Close()
		if perr := l.attachPrimaryLocked(ctx); perr != nil {
			l.cfg.Logger.Error("loader: primary fallback", "error", perr)
		}
		return errkind.ErrSuperseded
	}

	if err := l.cfg.Session.Attach(ctx, sf); err != nil {
		sf.Close()
		if perr := l.attachPrimaryLocked(ctx); perr != nil {
			l.cfg.Logger.Error("loader: primary fallback", "error", perr)
		}
		return l.fail(ctx, gen, err)
	}
	l.active = sf
	l.setState(gen, Attached)
	l.cfg.Logger.Info("loader: surface attached", "surface", sf.ID(), "origin", doc.Origin, "title", doc.Title)
	return nil
}

// retireLocked detaches the session from the isolated surface and closes it.
func (l *Loader) retireLocked(ctx context.Context) {
	if l.active == nil {
		return
	}
	old := l.active
	l.active = nil
	l.cfg.Session.Detach(ctx)
	if err := old.Close(); err != nil {
		l.cfg.Logger.Warn("loader: close surface", "surface", old.ID(), "error", err)
	}
	l.cfg.Logger.Debug("loader: retired surface", "surface", old.ID())
}

func (l *Loader) attachPrimaryLocked(ctx context.Context) error {
	p, err := l.cfg.Renderer.Primary(ctx)
	if err != nil {
		return errkind.New(errkind.Unknown, "loader: primary surface", err)
	}
	return l.cfg.Session.Attach(ctx, p)
}

// Close retires the isolated surface and cancels any load in flight.
func (l *Loader) Close() error {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	l.mu.Unlock()

	l.swap.Lock()
	defer l.swap.Unlock()
	l.retireLocked(context.Background())
	return nil
}
