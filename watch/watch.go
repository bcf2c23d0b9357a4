// Package watch runs a "detect change, debounce, reload" loop over a local
// file. Changes are noticed through fsnotify events and a polling ticker
// that also covers filesystems without inotify.
//
// Typical usage:
//
//	w := watch.New(path, watch.Options{Interval: 500*time.Millisecond, Debounce: 200*time.Millisecond})
//	go w.OnChange(ctx, func(ctx context.Context) error { return loader.Reload(ctx) })
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Token identifies one version of a file. Two different tokens mean
// "something changed".
type Token struct {
	ModTime int64 `json:"mod_time"` // UnixNano
	Size    int64 `json:"size"`
}

// ChangeDetector reads the current token of path.
type ChangeDetector func(ctx context.Context, path string) (Token, error)

// Options tunes the watcher behaviour.
type Options struct {
	// Interval is the polling frequency. Default: 1s.
	Interval time.Duration
	// Debounce is the quiet period after a change is detected before the
	// action fires. If more changes arrive during the window the timer
	// resets. 0 means fire immediately. Default: 0.
	Debounce time.Duration
	// Detector overrides the default StatDetector.
	Detector ChangeDetector
	// NoEvents disables fsnotify and relies on polling alone.
	NoEvents bool
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Detector == nil {
		o.Detector = StatDetector
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Watcher watches one file and runs an action when it changes. It is safe
// for concurrent use.
type Watcher struct {
	path string
	opts Options

	mu    sync.Mutex
	token Token

	checks   atomic.Int64
	changes  atomic.Int64
	errors   atomic.Int64
	reloads  atomic.Int64
	reloadNs atomic.Int64
}

// Stats are point-in-time counters.
type Stats struct {
	Checks          int64         `json:"checks"`
	ChangesDetected int64         `json:"changes_detected"`
	Errors          int64         `json:"errors"`
	Reloads         int64         `json:"reloads"`
	AvgReloadTime   time.Duration `json:"avg_reload_time"`
}

// New creates a Watcher for path. Call OnChange to start the loop.
func New(path string, opts Options) *Watcher {
	opts.defaults()
	return &Watcher{path: filepath.Clean(path), opts: opts}
}

// Path returns the watched file.
func (w *Watcher) Path() string { return w.path }

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	s := Stats{
		Checks:          w.checks.Load(),
		ChangesDetected: w.changes.Load(),
		Errors:          w.errors.Load(),
		Reloads:         w.reloads.Load(),
	}
	if s.Reloads > 0 {
		s.AvgReloadTime = time.Duration(w.reloadNs.Load() / s.Reloads)
	}
	return s
}

// Token returns the last successfully processed token.
func (w *Watcher) Token() Token {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.token
}

func (w *Watcher) setToken(t Token) {
	w.mu.Lock()
	w.token = t
	w.mu.Unlock()
}

// OnChange blocks until ctx is cancelled. When the detector reports a new
// token and the debounce window passes without further changes, action
// is called.
//
// If action returns an error the token is NOT advanced and the action is
// retried on the next check.
func (w *Watcher) OnChange(ctx context.Context, action func(ctx context.Context) error) {
	log := w.opts.Logger

	tok, err := w.opts.Detector(ctx, w.path)
	if err != nil {
		log.Warn("watch: initial check failed", "path", w.path, "error", err)
	} else {
		w.setToken(tok)
	}

	events := w.subscribe(ctx)

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time
	var pending Token
	hasPending := false

	log.Info("watch: started", "path", w.path, "interval", w.opts.Interval, "debounce", w.opts.Debounce)

	check := func() {
		w.checks.Add(1)
		cur, err := w.opts.Detector(ctx, w.path)
		if err != nil {
			w.errors.Add(1)
			log.Warn("watch: check failed", "path", w.path, "error", err)
			return
		}
		if cur == w.Token() || (hasPending && cur == pending) {
			return
		}
		w.changes.Add(1)
		pending, hasPending = cur, true

		if w.opts.Debounce <= 0 {
			w.fire(ctx, log, action, pending)
			hasPending = false
			return
		}
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.NewTimer(w.opts.Debounce)
		debounceCh = debounceTimer.C
		log.Debug("watch: change detected, debouncing", "path", w.path, "size", cur.Size)
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("watch: stopped", "path", w.path)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case <-ticker.C:
			check()

		case <-events:
			check()

		case <-debounceCh:
			debounceCh = nil
			if hasPending {
				w.fire(ctx, log, action, pending)
				hasPending = false
			}
		}
	}
}

// subscribe watches the parent directory so that editors replacing the
// file by rename are still seen. The channel never fires when fsnotify is
// unavailable.
func (w *Watcher) subscribe(ctx context.Context) <-chan struct{} {
	out := make(chan struct{}, 1)
	if w.opts.NoEvents {
		return out
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.opts.Logger.Warn("watch: fsnotify unavailable, polling only", "error", err)
		return out
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		w.opts.Logger.Warn("watch: fsnotify add failed, polling only", "path", w.path, "error", err)
		return out
	}

	go func() {
		defer fw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != w.path {
					continue
				}
				select {
				case out <- struct{}{}:
				default:
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				w.opts.Logger.Debug("watch: fsnotify error", "error", err)
			}
		}
	}()
	return out
}

func (w *Watcher) fire(ctx context.Context, log *slog.Logger, action func(context.Context) error, tok Token) {
	log.Info("watch: reloading", "path", w.path, "size", tok.Size)
	start := time.Now()
	if err := action(ctx); err != nil {
		w.errors.Add(1)
		log.Error("watch: reload failed", "path", w.path, "error", err)
		return
	}
	elapsed := time.Since(start)
	w.reloads.Add(1)
	w.reloadNs.Add(int64(elapsed))
	w.setToken(tok)
	log.Info("watch: reload complete", "path", w.path, "duration", elapsed)
}

// StatDetector uses the modification time and size from os.Stat.
func StatDetector(_ context.Context, path string) (Token, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Token{}, fmt.Errorf("watch: stat: %w", err)
	}
	if fi.IsDir() {
		return Token{}, fmt.Errorf("watch: %s is a directory", path)
	}
	return Token{ModTime: fi.ModTime().UnixNano(), Size: fi.Size()}, nil
}
