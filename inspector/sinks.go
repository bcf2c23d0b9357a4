package inspector

import (
	"context"
	"io"
	"log/slog"

	"github.com/hazyhaar/fontpeek/inspector/internal/sink"
	"github.com/hazyhaar/fontpeek/inspector/snapshot"
)

// Sink is the output interface for snapshots and status messages.
type Sink = sink.Sink

// Status is a transient user-visible message.
type Status = sink.Status

// StatusKind is the severity of a Status.
type StatusKind = sink.StatusKind

// HistoryEntry is one recorded inspection.
type HistoryEntry = sink.Entry

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process callback sink. Either function may be nil.
func NewCallbackSink(
	onSnapshot func(ctx context.Context, snap snapshot.FontSnapshot) error,
	onStatus func(ctx context.Context, st Status) error,
) Sink {
	return sink.NewCallback(onSnapshot, onStatus)
}
