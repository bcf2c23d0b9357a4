// Package prefs persists user preferences in the fontpeek database.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hazyhaar/fontpeek/inspector/internal/store"
)

// ThemeKey is the preference key holding the theme.
const ThemeKey = "theme"

// Theme is the UI colour scheme.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// Parse returns the theme named s, falling back to Light.
func Parse(s string) Theme {
	if Theme(s) == Dark {
		return Dark
	}
	return Light
}

// Toggled returns the opposite theme.
func (t Theme) Toggled() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// Icon is the indicator shown on the toggle: a sun offers the way back to
// light, a moon the way to dark.
func (t Theme) Icon() string {
	if t == Dark {
		return "fa-sun"
	}
	return "fa-moon"
}

// Store reads and writes preference values.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// SQLStore is a Store on the preferences table.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLStore creates a Store on a database opened by store.Open.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("prefs: get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	_, err := store.Exec(ctx, s.db,
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("prefs: set %s: %w", key, err)
	}
	return nil
}

// ThemeSetting holds the current theme. It reads the store once at load
// and writes it on every toggle.
type ThemeSetting struct {
	mu    sync.Mutex
	store Store
	theme Theme
}

// LoadTheme reads the persisted theme. Missing or unknown values are Light.
func LoadTheme(ctx context.Context, st Store) (*ThemeSetting, error) {
	v, _, err := st.Get(ctx, ThemeKey)
	if err != nil {
		return nil, err
	}
	return &ThemeSetting{store: st, theme: Parse(v)}, nil
}

// Current returns the theme in effect.
func (s *ThemeSetting) Current() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// Toggle flips the theme and persists it before returning. On a write
// failure the theme is left unchanged.
func (s *ThemeSetting) Toggle(ctx context.Context) (Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.theme.Toggled()
	if err := s.store.Set(ctx, ThemeKey, string(next)); err != nil {
		return s.theme, err
	}
	s.theme = next
	return next, nil
}

// Indicator returns the icon of the current theme.
func (s *ThemeSetting) Indicator() string {
	return s.Current().Icon()
}
