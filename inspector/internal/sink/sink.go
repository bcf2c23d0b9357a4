// Package sink defines output backends for committed snapshots and
// user-visible status messages.
package sink

import (
	"context"
	"time"

	"github.com/hazyhaar/fontpeek/inspector/snapshot"
)

// StatusKind is the severity of a status message.
type StatusKind string

const (
	Loading StatusKind = "loading"
	Success StatusKind = "success"
	Error   StatusKind = "error"
	Info    StatusKind = "info"
)

// Status is a transient message shown to the user.
type Status struct {
	Kind    StatusKind `json:"kind"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

// NewStatus stamps a status with the current time.
func NewStatus(kind StatusKind, msg string) Status {
	return Status{Kind: kind, Message: msg, At: time.Now().UTC()}
}

// Sink is the output interface. Implementations deliver to different
// backends (stdout, webhook, SQLite history, websocket clients, callbacks).
type Sink interface {
	SendSnapshot(ctx context.Context, snap snapshot.FontSnapshot) error
	SendStatus(ctx context.Context, st Status) error
	Close() error
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
