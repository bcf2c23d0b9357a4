package sink

import (
	"context"

	"github.com/hazyhaar/fontpeek/inspector/snapshot"
)

// SnapshotFunc is called for each committed snapshot.
type SnapshotFunc func(ctx context.Context, snap snapshot.FontSnapshot) error

// StatusFunc is called for each status message.
type StatusFunc func(ctx context.Context, st Status) error

// Callback delivers to in-process Go functions.
type Callback struct {
	onSnapshot SnapshotFunc
	onStatus   StatusFunc
}

// NewCallback creates a Callback sink. Either handler may be nil.
func NewCallback(onSnapshot SnapshotFunc, onStatus StatusFunc) *Callback {
	return &Callback{onSnapshot: onSnapshot, onStatus: onStatus}
}

func (c *Callback) SendSnapshot(ctx context.Context, snap snapshot.FontSnapshot) error {
	if c.onSnapshot != nil {
		return c.onSnapshot(ctx, snap)
	}
	return nil
}

func (c *Callback) SendStatus(ctx context.Context, st Status) error {
	if c.onStatus != nil {
		return c.onStatus(ctx, st)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
