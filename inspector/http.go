package inspector

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/fontpeek/inspector/internal/errkind"
	"github.com/hazyhaar/fontpeek/inspector/internal/loader"
	"github.com/hazyhaar/fontpeek/inspector/internal/shield"
)

//go:embed static
var staticFS embed.FS

// Handler returns the HTTP surface: the control panel, the JSON API, the
// websocket stream and the built-in fetch proxy.
func (i *Inspector) Handler() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack(i.cfg.Server.MaxUpload) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"status": "ok", "state": i.LoadState(), "clients": i.hub.Clients()})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		f, err := staticFS.Open("static/index.html")
		if err != nil {
			http.Error(w, "not found", 404)
			return
		}
		defer f.Close()
		io.Copy(w, f)
	})
	r.Handle("/static/*", http.FileServerFS(staticFS))
	r.Handle("/ws", i.hub)
	r.Get("/proxy/get", i.handleProxy)

	r.Route("/api", func(r chi.Router) {
		r.Post("/load/live", func(w http.ResponseWriter, r *http.Request) {
			if err := i.LoadLive(r.Context()); err != nil {
				writeKindError(w, r, err)
				return
			}
			writeJSON(w, 200, map[string]any{"state": i.LoadState()})
		})

		r.Post("/load/url", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				URL string `json:"url"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, 400, fmt.Errorf("invalid request body: %w", err))
				return
			}
			if err := i.LoadURL(r.Context(), req.URL); err != nil {
				writeKindError(w, r, err)
				return
			}
			writeJSON(w, 200, map[string]any{"state": i.LoadState(), "url": req.URL})
		})

		r.Post("/load/file", func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				writeError(w, 400, fmt.Errorf("invalid upload: %w", err))
				return
			}
			f, hdr, err := r.FormFile("file")
			if err != nil {
				writeError(w, 400, fmt.Errorf("missing file field: %w", err))
				return
			}
			defer f.Close()
			if err := i.LoadFile(r.Context(), hdr.Filename, f); err != nil {
				writeKindError(w, r, err)
				return
			}
			writeJSON(w, 200, map[string]any{"state": i.LoadState(), "file": hdr.Filename})
		})

		r.Post("/hover", func(w http.ResponseWriter, r *http.Request) {
			t, ok := decodeTarget(w, r)
			if !ok {
				return
			}
			st, err := i.Hover(r.Context(), t)
			if err != nil {
				writeKindError(w, r, err)
				return
			}
			writeJSON(w, 200, st)
		})

		r.Post("/click", func(w http.ResponseWriter, r *http.Request) {
			t, ok := decodeTarget(w, r)
			if !ok {
				return
			}
			res, err := i.Click(r.Context(), t)
			if err != nil {
				writeKindError(w, r, err)
				return
			}
			writeJSON(w, 200, map[string]any{"snapshot": res.Snapshot, "panel": res.Panel})
		})

		r.Get("/snapshot", func(w http.ResponseWriter, r *http.Request) {
			snap, err := i.Snapshot()
			if err != nil {
				writeKindError(w, r, err)
				return
			}
			panel, _ := i.Panel()
			writeJSON(w, 200, map[string]any{"snapshot": snap, "panel": panel})
		})

		r.Get("/export/json", func(w http.ResponseWriter, r *http.Request) {
			a, err := i.ExportJSON(r.Context())
			if err != nil {
				writeKindError(w, r, err)
				return
			}
			w.Header().Set("Content-Type", a.ContentType)
			w.Header().Set("Content-Disposition", `attachment; filename="`+a.Name+`"`)
			w.WriteHeader(200)
			w.Write(a.Data)
		})

		r.Post("/export/pdf", func(w http.ResponseWriter, r *http.Request) {
			msg, err := i.ExportPDF(r.Context())
			if err != nil {
				writeKindError(w, r, err)
				return
			}
			writeJSON(w, 200, map[string]string{"message": msg})
		})

		r.Post("/copy", func(w http.ResponseWriter, r *http.Request) {
			done, err := i.CopyCSS(r.Context())
			if err != nil {
				writeKindError(w, r, err)
				return
			}
			select {
			case err := <-done:
				if err != nil {
					writeError(w, 500, err)
					return
				}
			case <-r.Context().Done():
				return
			}
			st, _ := i.Status()
			writeJSON(w, 200, map[string]string{"message": st.Message})
		})

		r.Get("/theme", func(w http.ResponseWriter, r *http.Request) {
			t := i.Theme()
			writeJSON(w, 200, map[string]string{"theme": string(t), "icon": t.Icon()})
		})

		r.Post("/theme/toggle", func(w http.ResponseWriter, r *http.Request) {
			t, err := i.ToggleTheme(r.Context())
			if err != nil {
				writeKindError(w, r, err)
				return
			}
			writeJSON(w, 200, map[string]string{"theme": string(t), "icon": t.Icon()})
		})

		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			out := map[string]any{"state": i.LoadState()}
			if st, ok := i.Status(); ok {
				out["status"] = st
			}
			writeJSON(w, 200, out)
		})

		r.Get("/history", func(w http.ResponseWriter, r *http.Request) {
			entries, err := i.History(r.Context(), queryInt(r, "limit", 20))
			if err != nil {
				writeKindError(w, r, err)
				return
			}
			if entries == nil {
				entries = []HistoryEntry{}
			}
			writeJSON(w, 200, entries)
		})
	})

	return r
}

// handleProxy answers in the allorigins envelope so that proxy.endpoint can
// point at this server.
func (i *Inspector) handleProxy(w http.ResponseWriter, r *http.Request) {
	pageURL, err := loader.Validate(r.URL.Query().Get("url"))
	if err != nil {
		writeError(w, 400, errors.New(errkind.Message(err)))
		return
	}

	start := time.Now()
	res, err := i.fetch.Fetch(r.Context(), pageURL)
	if err != nil {
		shield.GetLogger(r.Context()).Warn("inspector: proxy fetch", "url", pageURL, "error", err)
		writeError(w, 502, err)
		return
	}
	writeJSON(w, 200, map[string]any{
		"contents": string(res.Body),
		"status": map[string]any{
			"url":           res.FinalURL,
			"content_type":  res.ContentType,
			"http_code":     res.StatusCode,
			"response_time": time.Since(start).Milliseconds(),
		},
	})
}

func decodeTarget(w http.ResponseWriter, r *http.Request) (Target, bool) {
	var t Target
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, 400, fmt.Errorf("invalid request body: %w", err))
		return t, false
	}
	return t, true
}

// statusFor maps an inspector error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSuperseded):
		return 409
	case errors.Is(err, ErrNotStarted):
		return 503
	}
	switch errkind.KindOf(err) {
	case errkind.Validation, errkind.Parse:
		return 400
	case errkind.NoSnapshot:
		return 404
	case errkind.Transport:
		return 502
	case errkind.FileRead:
		return 422
	case errkind.Extraction:
		return 409
	}
	return 500
}

func writeKindError(w http.ResponseWriter, r *http.Request, err error) {
	body := map[string]string{"error": errkind.Message(err), "kind": errkind.KindOf(err).String()}
	if id := shield.GetTraceID(r.Context()); id != "" {
		body["trace_id"] = id
	}
	writeJSON(w, statusFor(err), body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
