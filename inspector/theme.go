package inspector

import (
	"context"
	"fmt"

	"github.com/hazyhaar/fontpeek/inspector/internal/prefs"
	"github.com/hazyhaar/fontpeek/inspector/internal/store"
)

// StoredTheme reads the theme persisted in the database at path without
// starting a browser. With toggle it flips and saves the theme first.
func StoredTheme(ctx context.Context, path string, toggle bool) (Theme, error) {
	db, err := store.Open(path, store.WithMkdirAll())
	if err != nil {
		return prefs.Light, fmt.Errorf("inspector: open store: %w", err)
	}
	defer db.Close()

	setting, err := prefs.LoadTheme(ctx, prefs.NewSQLStore(db))
	if err != nil {
		return prefs.Light, fmt.Errorf("inspector: load theme: %w", err)
	}
	if !toggle {
		return setting.Current(), nil
	}
	return setting.Toggle(ctx)
}
