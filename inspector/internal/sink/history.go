package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/fontpeek/inspector/internal/idgen"
	"github.com/hazyhaar/fontpeek/inspector/internal/store"
	"github.com/hazyhaar/fontpeek/inspector/snapshot"
)

// Entry is one recorded inspection.
type Entry struct {
	ID         string                `json:"id"`
	CapturedAt time.Time             `json:"capturedAt"`
	Source     string                `json:"source"`
	TagName    string                `json:"tagName"`
	Snapshot   snapshot.FontSnapshot `json:"snapshot"`
}

// History appends every committed snapshot to the snapshots table.
type History struct {
	db    *sql.DB
	newID idgen.Generator
}

// NewHistory creates a History sink on a database opened by store.Open.
func NewHistory(db *sql.DB) *History {
	return &History{db: db, newID: idgen.UUIDv7()}
}

func (h *History) SendSnapshot(ctx context.Context, snap snapshot.FontSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("history: marshal: %w", err)
	}
	_, err = store.Exec(ctx, h.db,
		`INSERT INTO snapshots (id, captured_at, source, tag_name, data) VALUES (?, ?, ?, ?, ?)`,
		h.newID(), snap.CapturedAt.UnixMilli(), snap.SourceLocation, snap.TagName, string(data))
	if err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}
	return nil
}

func (h *History) SendStatus(context.Context, Status) error { return nil }

func (h *History) Close() error { return nil }

// List returns the most recent entries, newest first. limit <= 0 means 50.
func (h *History) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, captured_at, source, tag_name, data FROM snapshots
		 ORDER BY captured_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e    Entry
			ms   int64
			data string
		)
		if err := rows.Scan(&e.ID, &ms, &e.Source, &e.TagName, &data); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &e.Snapshot); err != nil {
			return nil, fmt.Errorf("history: decode %s: %w", e.ID, err)
		}
		e.CapturedAt = time.UnixMilli(ms).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
