package inspector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoredTheme(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "fontpeek.db")

	th, err := StoredTheme(ctx, path, false)
	require.NoError(t, err)
	assert.Equal(t, Theme("light"), th)

	th, err = StoredTheme(ctx, path, true)
	require.NoError(t, err)
	assert.Equal(t, Theme("dark"), th)

	th, err = StoredTheme(ctx, path, false)
	require.NoError(t, err)
	assert.Equal(t, Theme("dark"), th)
}
