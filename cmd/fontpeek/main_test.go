package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	ctx := t.Context()
	assert.True(t, newLogger("debug").Enabled(ctx, slog.LevelDebug))
	assert.False(t, newLogger("warn").Enabled(ctx, slog.LevelInfo))
	assert.True(t, newLogger("bogus").Enabled(ctx, slog.LevelInfo))
	assert.False(t, newLogger("bogus").Enabled(ctx, slog.LevelDebug))
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func TestThemeCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "fontpeek.yaml")
	dbPath := filepath.Join(dir, "state", "fontpeek.db")
	require.NoError(t, os.WriteFile(cfgPath, []byte("store:\n  path: "+dbPath+"\n"), 0o644))
	t.Setenv("FONTPEEK_DB", "")

	out, err := runCLI(t, "--config", cfgPath, "theme")
	require.NoError(t, err)
	assert.Equal(t, "light (fa-moon)\n", out)

	out, err = runCLI(t, "--config", cfgPath, "theme", "toggle")
	require.NoError(t, err)
	assert.Equal(t, "dark (fa-sun)\n", out)

	_, err = runCLI(t, "--config", cfgPath, "theme", "flip")
	assert.Error(t, err)
}

func TestLoadConfig_Env(t *testing.T) {
	configPath = ""
	t.Setenv("FONTPEEK_ADDR", ":9999")
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}
