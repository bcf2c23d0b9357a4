package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestStatDetector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	writeFile(t, path, "<p>a</p>")

	tok, err := StatDetector(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if tok.Size != 8 || tok.ModTime == 0 {
		t.Fatalf("unexpected token %+v", tok)
	}

	if _, err := StatDetector(context.Background(), filepath.Dir(path)); err == nil {
		t.Fatal("expected error for directory")
	}
	if _, err := StatDetector(context.Background(), path+".missing"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestOnChange_Reloads(t *testing.T) {
	for _, noEvents := range []bool{false, true} {
		t.Run(map[bool]string{false: "events", true: "polling"}[noEvents], func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "page.html")
			writeFile(t, path, "<p>a</p>")

			w := New(path, Options{Interval: 20 * time.Millisecond, Debounce: 30 * time.Millisecond, NoEvents: noEvents})
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var calls atomic.Int32
			done := make(chan struct{})
			go func() {
				w.OnChange(ctx, func(context.Context) error {
					calls.Add(1)
					return nil
				})
				close(done)
			}()

			waitFor(t, time.Second, func() bool { return w.Stats().Checks > 0 })
			writeFile(t, path, "<p>changed</p>")

			waitFor(t, 2*time.Second, func() bool { return calls.Load() == 1 })
			if got := w.Token().Size; got != int64(len("<p>changed</p>")) {
				t.Fatalf("token size: got %d", got)
			}

			time.Sleep(100 * time.Millisecond)
			if calls.Load() != 1 {
				t.Fatalf("expected one reload, got %d", calls.Load())
			}
			if s := w.Stats(); s.Reloads != 1 {
				t.Fatalf("stats: %+v", s)
			}

			cancel()
			<-done
		})
	}
}

func TestOnChange_FailedReloadRetries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	writeFile(t, path, "<p>a</p>")

	w := New(path, Options{Interval: 10 * time.Millisecond, NoEvents: true})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go w.OnChange(ctx, func(context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("renderer busy")
		}
		return nil
	})

	waitFor(t, time.Second, func() bool { return w.Stats().Checks > 0 })
	before := w.Token()
	writeFile(t, path, "<p>bigger</p>")

	waitFor(t, 2*time.Second, func() bool { return w.Stats().Reloads == 1 })
	if calls.Load() != 2 {
		t.Fatalf("expected a failed call then a retry, got %d calls", calls.Load())
	}
	if w.Token() == before {
		t.Fatal("token not advanced after successful retry")
	}
	if w.Stats().Errors < 1 {
		t.Fatal("failed reload not counted")
	}
}

func TestOnChange_MissingFileCountsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.html")
	w := New(path, Options{Interval: 10 * time.Millisecond, NoEvents: true})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.OnChange(ctx, func(context.Context) error {
		t.Error("action must not run for a missing file")
		return nil
	})
	waitFor(t, time.Second, func() bool { return w.Stats().Errors >= 2 })
}
