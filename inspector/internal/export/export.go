// Package export turns the latest snapshot into artifacts: a JSON download,
// the PDF notice and the clipboard copy of its CSS.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/hazyhaar/fontpeek/inspector/internal/errkind"
	"github.com/hazyhaar/fontpeek/inspector/internal/sink"
	"github.com/hazyhaar/fontpeek/inspector/snapshot"
)

const (
	NoDataMessage = "No font data to export. Please inspect an element first."
	NoCSSMessage  = "No CSS to copy. Please inspect an element first."
	PDFNotice     = "PDF export would be generated here. In a real implementation, this would use a PDF generation library."
	CopiedMessage = "CSS copied to clipboard!"
)

// Source yields the latest committed snapshot.
type Source interface {
	Latest() (snapshot.FontSnapshot, bool)
}

// Clipboard is the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Artifact is a downloadable export.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Service performs exports against a Source.
type Service struct {
	src    Source
	sink   sink.Sink
	clip   Clipboard
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClipboard replaces the system clipboard.
func WithClipboard(c Clipboard) Option {
	return func(s *Service) { s.clip = c }
}

// WithClock sets the clock used to date artifacts.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSink sets where status messages go.
func WithSink(sk sink.Sink) Option {
	return func(s *Service) { s.sink = sk }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service reading from src.
func New(src Source, opts ...Option) *Service {
	s := &Service{
		src:    src,
		clip:   systemClipboard{},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.sink == nil {
		s.sink = sink.NewRouter(s.logger)
	}
	return s
}

func (s *Service) status(ctx context.Context, kind sink.StatusKind, msg string) {
	s.sink.SendStatus(context.WithoutCancel(ctx), sink.NewStatus(kind, msg))
}

func (s *Service) latest(ctx context.Context, op, msg string) (snapshot.FontSnapshot, error) {
	snap, ok := s.src.Latest()
	if !ok {
		s.status(ctx, sink.Error, msg)
		return snapshot.FontSnapshot{}, errkind.Errorf(errkind.NoSnapshot, op, "%s", msg)
	}
	return snap, nil
}

// FileName returns the artifact name for t: fontpeek-YYYY-MM-DD.json in UTC.
func FileName(t time.Time) string {
	return "fontpeek-" + t.UTC().Format("2006-01-02") + ".json"
}

// ExportJSON serializes the latest snapshot.
func (s *Service) ExportJSON(ctx context.Context) (Artifact, error) {
	snap, err := s.latest(ctx, "export: json", NoDataMessage)
	if err != nil {
		return Artifact{}, err
	}
	data, err := snap.MarshalIndent()
	if err != nil {
		return Artifact{}, fmt.Errorf("export: json: %w", err)
	}
	return Artifact{
		Name:        FileName(s.now()),
		ContentType: "application/json",
		Data:        data,
	}, nil
}

// SaveJSON writes the JSON artifact into dir and returns its path.
func (s *Service) SaveJSON(ctx context.Context, dir string) (string, error) {
	a, err := s.ExportJSON(ctx)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, a.Name)
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return "", fmt.Errorf("export: write %s: %w", path, err)
	}
	s.logger.Info("export: saved json", "path", path, "size", len(a.Data))
	s.status(ctx, sink.Success, "Exported "+a.Name)
	return path, nil
}

// ExportPDF reports that PDF generation is not available. Nothing is written.
func (s *Service) ExportPDF(ctx context.Context) (string, error) {
	snap, err := s.latest(ctx, "export: pdf", NoDataMessage)
	if err != nil {
		return "", err
	}
	s.logger.Info("export: pdf requested", "tag", snap.TagName, "source", snap.SourceLocation)
	s.status(ctx, sink.Info, PDFNotice)
	return PDFNotice, nil
}

// CopyCSS writes the trimmed derived CSS to the clipboard without blocking.
// The returned channel yields the write result once, then closes.
func (s *Service) CopyCSS(ctx context.Context) (<-chan error, error) {
	snap, err := s.latest(ctx, "export: copy css", NoCSSMessage)
	if err != nil {
		return nil, err
	}
	css := strings.TrimSpace(snap.DerivedCSSText)

	done := make(chan error, 1)
	go func() {
		defer close(done)
		if err := s.clip.WriteAll(css); err != nil {
			s.logger.Warn("export: clipboard write", "error", err)
			s.status(ctx, sink.Error, "Error: could not copy CSS: "+err.Error())
			done <- fmt.Errorf("export: clipboard: %w", err)
			return
		}
		s.logger.Debug("export: copied css", "size", len(css))
		s.status(ctx, sink.Success, CopiedMessage)
		done <- nil
	}()
	return done, nil
}
