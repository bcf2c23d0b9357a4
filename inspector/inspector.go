// Package inspector is the fontpeek controller. It drives a browser,
// loads documents into viewing surfaces and reports the computed font
// styling of the elements the user clicks.
//
// One Inspector owns the browser, the inspection session, the document
// loader, the exports, the theme and the sinks. The HTTP handler, the MCP
// tools and the CLI are thin adapters over its methods.
package inspector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hazyhaar/fontpeek/inspector/internal/browser"
	"github.com/hazyhaar/fontpeek/inspector/internal/errkind"
	"github.com/hazyhaar/fontpeek/inspector/internal/export"
	"github.com/hazyhaar/fontpeek/inspector/internal/fetcher"
	"github.com/hazyhaar/fontpeek/inspector/internal/loader"
	"github.com/hazyhaar/fontpeek/inspector/internal/overlay"
	"github.com/hazyhaar/fontpeek/inspector/internal/prefs"
	"github.com/hazyhaar/fontpeek/inspector/internal/session"
	"github.com/hazyhaar/fontpeek/inspector/internal/sink"
	"github.com/hazyhaar/fontpeek/inspector/internal/store"
	"github.com/hazyhaar/fontpeek/inspector/internal/surface"
	"github.com/hazyhaar/fontpeek/inspector/snapshot"
	"github.com/hazyhaar/fontpeek/watch"
)

// Re-exported types used by the adapters.
type (
	Target       = surface.Target
	Renderer     = surface.Renderer
	Result       = session.Result
	Artifact     = export.Artifact
	Clipboard    = export.Clipboard
	LoadState    = loader.State
	OverlayState = overlay.State
	Theme        = prefs.Theme
	WatchStats   = watch.Stats
)

// ErrSuperseded is returned by a load that a newer load replaced.
var ErrSuperseded = errkind.ErrSuperseded

// ErrNotStarted is returned by operations called before Start.
var ErrNotStarted = errors.New("inspector: not started")

// Option configures an Inspector.
type Option func(*Inspector)

// WithRenderer replaces the Chrome backend. No browser is launched.
func WithRenderer(r Renderer) Option {
	return func(i *Inspector) { i.renderer = r }
}

// WithDB uses db instead of opening cfg.Store.Path. The caller keeps
// ownership and applies the schema (store.Open does).
func WithDB(db *sql.DB) Option {
	return func(i *Inspector) { i.db = db }
}

// WithClipboard replaces the system clipboard.
func WithClipboard(c Clipboard) Option {
	return func(i *Inspector) { i.clip = c }
}

// WithClock sets the clock used for snapshot and export timestamps.
func WithClock(now func() time.Time) Option {
	return func(i *Inspector) { i.now = now }
}

// WithSinks adds output backends besides the configured ones.
func WithSinks(sinks ...Sink) Option {
	return func(i *Inspector) { i.extra = append(i.extra, sinks...) }
}

// Inspector is the top-level orchestrator. Create one per process.
type Inspector struct {
	cfg    *Config
	logger *slog.Logger

	renderer surface.Renderer
	mgr      *browser.Manager
	rodR     *browser.Renderer
	db       *sql.DB
	ownDB    bool
	clip     export.Clipboard
	now      func() time.Time
	extra    []sink.Sink

	router  *sink.Router
	board   *sink.Board
	hub     *sink.Hub
	history *sink.History
	fetch   *fetcher.Fetcher

	session *session.Session
	loader  *loader.Loader
	export  *export.Service
	theme   *prefs.ThemeSetting

	mu          sync.Mutex
	started     bool
	watcher     *watch.Watcher
	stopWatcher context.CancelFunc
}

// New creates an Inspector from configuration. Call Start before use.
func New(cfg *Config, logger *slog.Logger, opts ...Option) *Inspector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	i := &Inspector{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, o := range opts {
		o(i)
	}

	i.board = sink.NewBoard()
	i.hub = sink.NewHub(logger)
	i.router = sink.NewRouter(logger, i.board, i.hub)
	i.fetch = fetcher.New(fetcher.WithLogger(logger))
	return i
}

// Start opens the store, launches the browser unless a renderer was given,
// and attaches the session to the primary surface.
func (i *Inspector) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.started {
		return nil
	}

	if i.db == nil {
		db, err := store.Open(i.cfg.Store.Path, store.WithMkdirAll())
		if err != nil {
			return fmt.Errorf("inspector: open store: %w", err)
		}
		i.db, i.ownDB = db, true
	}
	theme, err := prefs.LoadTheme(ctx, prefs.NewSQLStore(i.db))
	if err != nil {
		i.closeDB()
		return fmt.Errorf("inspector: load theme: %w", err)
	}
	i.theme = theme

	i.history = sink.NewHistory(i.db)
	i.router.Add(i.history)
	for _, s := range i.configuredSinks() {
		i.router.Add(s)
	}
	for _, s := range i.extra {
		i.router.Add(s)
	}

	if i.renderer == nil {
		i.mgr = browser.NewManager(browser.Config{
			RemoteURL:        i.cfg.Browser.Remote,
			Bin:              i.cfg.Browser.Bin,
			Headful:          i.cfg.Browser.Headful,
			Stealth:          i.cfg.Browser.Stealth,
			ResourceBlocking: i.cfg.Browser.ResourceBlocking,
			Logger:           i.logger,
		})
		if _, err := i.mgr.Start(ctx); err != nil {
			i.closeDB()
			return fmt.Errorf("inspector: start browser: %w", err)
		}
		i.rodR = browser.NewRenderer(i.mgr, browser.WithPrimaryURL(i.cfg.Primary.URL), browser.WithLoadTimeout(i.cfg.Proxy.Timeout))
		i.renderer = i.rodR
	}

	i.session = session.New(session.Config{
		Extractor:    snapshot.NewExtractor(snapshot.WithClock(i.now)),
		Sink:         i.router,
		EventTimeout: i.cfg.Session.EventTimeout,
		Logger:       i.logger,
	})
	i.loader = loader.New(loader.Config{
		Renderer: i.renderer,
		Session:  i.session,
		Proxy:    loader.NewProxyClient(i.cfg.Proxy.Endpoint, loader.WithProxyLogger(i.logger)),
		Sink:     i.router,
		Timeout:  i.cfg.Proxy.Timeout,
		MaxFile:  i.cfg.Server.MaxUpload,
		Logger:   i.logger,
	})
	exportOpts := []export.Option{
		export.WithSink(i.router),
		export.WithClock(i.now),
		export.WithLogger(i.logger),
	}
	if i.clip != nil {
		exportOpts = append(exportOpts, export.WithClipboard(i.clip))
	}
	i.export = export.New(i.session, exportOpts...)

	i.started = true
	if err := i.loader.LoadLive(ctx); err != nil {
		i.logger.Warn("inspector: primary surface unavailable", "error", err)
	}
	i.logger.Info("inspector: started", "theme", i.theme.Current(), "proxy", i.cfg.Proxy.Endpoint)
	return nil
}

func (i *Inspector) configuredSinks() []sink.Sink {
	var out []sink.Sink
	for _, sc := range i.cfg.Sinks {
		switch sc.Type {
		case "stdout":
			out = append(out, sink.NewStdout(os.Stdout))
		case "webhook":
			out = append(out, sink.NewWebhook(sc.URL, sink.WithWebhookLogger(i.logger)))
		case "history":
			// always recorded
		default:
			i.logger.Warn("inspector: unknown sink type", "type", sc.Type)
		}
	}
	return out
}

// Stop stops watching, closes the surfaces, the sinks, the browser and the store.
func (i *Inspector) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.started {
		return
	}
	i.started = false

	if i.stopWatcher != nil {
		i.stopWatcher()
		i.stopWatcher = nil
	}
	i.loader.Close()
	i.session.Close()
	if err := i.router.Close(); err != nil {
		i.logger.Warn("inspector: close sinks", "error", err)
	}
	if i.rodR != nil {
		i.rodR.Close()
	}
	if i.mgr != nil {
		i.mgr.Close()
	}
	i.closeDB()
	i.logger.Info("inspector: stopped")
}

func (i *Inspector) closeDB() {
	if i.ownDB && i.db != nil {
		i.db.Close()
		i.db = nil
	}
}

func (i *Inspector) ready() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.started {
		return ErrNotStarted
	}
	return nil
}

// LoadLive inspects the primary surface.
func (i *Inspector) LoadLive(ctx context.Context) error {
	if err := i.ready(); err != nil {
		return err
	}
	return i.loader.LoadLive(ctx)
}

// LoadURL fetches raw through the content proxy and inspects it.
func (i *Inspector) LoadURL(ctx context.Context, raw string) error {
	if err := i.ready(); err != nil {
		return err
	}
	return i.loader.LoadURL(ctx, raw)
}

// LoadFile renders the HTML read from r and inspects it.
func (i *Inspector) LoadFile(ctx context.Context, name string, r io.Reader) error {
	if err := i.ready(); err != nil {
		return err
	}
	return i.loader.LoadFile(ctx, name, r)
}

// LoadPath loads the local file at path.
func (i *Inspector) LoadPath(ctx context.Context, path string) error {
	if err := i.ready(); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		err = errkind.New(errkind.FileRead, "inspector: open file", err)
		i.router.SendStatus(context.WithoutCancel(ctx), sink.NewStatus(sink.Error, "Error: "+errkind.Message(err)))
		return err
	}
	defer f.Close()
	return i.loader.LoadFile(ctx, filepath.Base(path), f)
}

// WatchFile loads path, then reloads it whenever it changes on disk until
// ctx is done or another file is watched.
func (i *Inspector) WatchFile(ctx context.Context, path string) error {
	if err := i.LoadPath(ctx, path); err != nil {
		return err
	}

	w := watch.New(path, watch.Options{
		Interval: i.cfg.Watch.Interval,
		Debounce: i.cfg.Watch.Debounce,
		Logger:   i.logger,
	})
	wctx, cancel := context.WithCancel(ctx)

	i.mu.Lock()
	if i.stopWatcher != nil {
		i.stopWatcher()
	}
	i.watcher, i.stopWatcher = w, cancel
	i.mu.Unlock()

	go w.OnChange(wctx, func(ctx context.Context) error {
		err := i.LoadPath(ctx, path)
		if errors.Is(err, errkind.ErrSuperseded) {
			return nil
		}
		return err
	})
	return nil
}

// WatchStats returns the counters of the active file watch.
func (i *Inspector) WatchStats() (WatchStats, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.watcher == nil {
		return WatchStats{}, false
	}
	return i.watcher.Stats(), true
}

func (i *Inspector) activeSurface() (surface.Surface, error) {
	if err := i.ready(); err != nil {
		return nil, err
	}
	sf := i.session.Surface()
	if sf == nil {
		return nil, errkind.Errorf(errkind.Unknown, "inspector", "no surface attached")
	}
	return sf, nil
}

// Hover moves the pointer over t and returns the highlight state.
func (i *Inspector) Hover(ctx context.Context, t Target) (OverlayState, error) {
	sf, err := i.activeSurface()
	if err != nil {
		return OverlayState{}, err
	}
	if err := sf.Dispatch(ctx, surface.Move, t); err != nil {
		return OverlayState{}, errkind.New(errkind.Validation, "inspector: hover", err)
	}
	return i.session.Overlay().State(), nil
}

// Click clicks t and waits for the resulting snapshot.
func (i *Inspector) Click(ctx context.Context, t Target) (Result, error) {
	sf, err := i.activeSurface()
	if err != nil {
		return Result{}, err
	}

	ch, cancel := i.session.Await()
	defer cancel()

	if err := sf.Dispatch(ctx, surface.Click, t); err != nil {
		return Result{}, errkind.New(errkind.Validation, "inspector: click", err)
	}

	timer := time.NewTimer(i.cfg.Session.ClickWait)
	defer timer.Stop()
	select {
	case res := <-ch:
		return res, res.Err
	case <-timer.C:
		return Result{}, errkind.Errorf(errkind.Extraction, "inspector: click", "no click event received within %s", i.cfg.Session.ClickWait)
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Snapshot returns the latest snapshot.
func (i *Inspector) Snapshot() (snapshot.FontSnapshot, error) {
	if err := i.ready(); err != nil {
		return snapshot.FontSnapshot{}, err
	}
	snap, ok := i.session.Latest()
	if !ok {
		return snapshot.FontSnapshot{}, errkind.Errorf(errkind.NoSnapshot, "inspector: snapshot", "%s", export.NoDataMessage)
	}
	return snap, nil
}

// Panel returns the rendered panel of the latest snapshot.
func (i *Inspector) Panel() (snapshot.Panel, bool) {
	if i.ready() != nil {
		return snapshot.Panel{}, false
	}
	return i.session.Panel()
}

// Overlay returns the highlight state.
func (i *Inspector) Overlay() OverlayState {
	if i.ready() != nil {
		return OverlayState{}
	}
	return i.session.Overlay().State()
}

// ExportJSON returns the latest snapshot as a JSON artifact.
func (i *Inspector) ExportJSON(ctx context.Context) (Artifact, error) {
	if err := i.ready(); err != nil {
		return Artifact{}, err
	}
	return i.export.ExportJSON(ctx)
}

// SaveJSON writes the JSON artifact into dir, or the configured export
// directory when dir is empty.
func (i *Inspector) SaveJSON(ctx context.Context, dir string) (string, error) {
	if err := i.ready(); err != nil {
		return "", err
	}
	if dir == "" {
		dir = i.cfg.Export.Dir
	}
	return i.export.SaveJSON(ctx, dir)
}

// ExportPDF returns the PDF placeholder notice.
func (i *Inspector) ExportPDF(ctx context.Context) (string, error) {
	if err := i.ready(); err != nil {
		return "", err
	}
	return i.export.ExportPDF(ctx)
}

// CopyCSS copies the derived CSS to the clipboard asynchronously.
func (i *Inspector) CopyCSS(ctx context.Context) (<-chan error, error) {
	if err := i.ready(); err != nil {
		return nil, err
	}
	return i.export.CopyCSS(ctx)
}

// Theme returns the current theme.
func (i *Inspector) Theme() Theme {
	if i.ready() != nil {
		return prefs.Light
	}
	return i.theme.Current()
}

// Indicator returns the icon name of the current theme.
func (i *Inspector) Indicator() string {
	return i.Theme().Icon()
}

// ToggleTheme flips and persists the theme.
func (i *Inspector) ToggleTheme(ctx context.Context) (Theme, error) {
	if err := i.ready(); err != nil {
		return prefs.Light, err
	}
	t, err := i.theme.Toggle(ctx)
	if err != nil {
		i.logger.Error("inspector: persist theme", "error", err)
		return t, fmt.Errorf("inspector: toggle theme: %w", err)
	}
	i.router.SendStatus(context.WithoutCancel(ctx), sink.NewStatus(sink.Info, "Theme set to "+string(t)))
	return t, nil
}

// Status returns the last status message.
func (i *Inspector) Status() (Status, bool) {
	return i.board.Last()
}

// LoadState returns the loader state.
func (i *Inspector) LoadState() LoadState {
	if i.ready() != nil {
		return loader.Idle
	}
	return i.loader.State()
}

// History returns the most recent inspections, newest first.
func (i *Inspector) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if err := i.ready(); err != nil {
		return nil, err
	}
	return i.history.List(ctx, limit)
}
