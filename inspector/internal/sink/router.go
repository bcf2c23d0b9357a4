package sink

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hazyhaar/fontpeek/inspector/snapshot"
)

// Router fans out to all configured sinks. One sink error does not block
// the others: errors are logged and the first encountered is returned.
type Router struct {
	mu     sync.RWMutex
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

// Add appends s to the fan-out list.
func (r *Router) Add(s Sink) {
	r.mu.Lock()
	r.sinks = append(r.sinks, s)
	r.mu.Unlock()
}

func (r *Router) list() []Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sinks
}

func (r *Router) SendSnapshot(ctx context.Context, snap snapshot.FontSnapshot) error {
	var firstErr error
	for _, s := range r.list() {
		if err := s.SendSnapshot(ctx, snap); err != nil {
			r.logger.Warn("sink: send snapshot failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) SendStatus(ctx context.Context, st Status) error {
	var firstErr error
	for _, s := range r.list() {
		if err := s.SendStatus(ctx, st); err != nil {
			r.logger.Warn("sink: send status failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.list() {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
