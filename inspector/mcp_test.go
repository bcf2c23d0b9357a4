package inspector

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMCPImpl = &mcp.Implementation{Name: "fontpeek-test", Version: "0.0.1"}

func mcpSession(t *testing.T, f *fixture) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	f.insp.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) (string, error) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err, "CallTool(%s)", name)
	require.NotEmpty(t, result.Content, "CallTool(%s): empty content", name)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "CallTool(%s): expected TextContent", name)
	if result.IsError {
		return "", errors.New(tc.Text)
	}
	return tc.Text, nil
}

func TestMCP_ListTools(t *testing.T) {
	session := mcpSession(t, newFixture(t, ""))

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"fontpeek_load_live", "fontpeek_load_url", "fontpeek_load_file",
		"fontpeek_hover", "fontpeek_click", "fontpeek_snapshot",
		"fontpeek_copy_css", "fontpeek_export_json", "fontpeek_export_pdf",
		"fontpeek_theme_toggle", "fontpeek_history",
	}, names)
}

func TestMCP_ClickSnapshotExport(t *testing.T) {
	f := newFixture(t, "")
	session := mcpSession(t, f)

	_, err := callTool(t, session, "fontpeek_snapshot", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please inspect an element first")

	text, err := callTool(t, session, "fontpeek_click", map[string]any{"selector": "p"})
	require.NoError(t, err)
	var click struct {
		Snapshot map[string]any `json:"snapshot"`
		Panel    string         `json:"panel"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &click))
	assert.Equal(t, "p", click.Snapshot["tagName"])
	assert.Equal(t, "lead", click.Snapshot["className"])
	assert.Contains(t, click.Panel, "16px")

	dir := t.TempDir()
	text, err = callTool(t, session, "fontpeek_export_json", map[string]any{"dir": dir})
	require.NoError(t, err)
	var saved struct {
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &saved))
	assert.Equal(t, filepath.Join(dir, "fontpeek-2026-10-18.json"), saved.Path)
	_, err = os.Stat(saved.Path)
	require.NoError(t, err)

	text, err = callTool(t, session, "fontpeek_copy_css", map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, text, "font-size: 16px;")
	assert.Contains(t, f.clip.Text(), "font-size: 16px;")

	text, err = callTool(t, session, "fontpeek_history", map[string]any{"limit": 5})
	require.NoError(t, err)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &entries))
	assert.Len(t, entries, 1)
}

func TestMCP_LoadErrorsAreToolErrors(t *testing.T) {
	session := mcpSession(t, newFixture(t, ""))

	_, err := callTool(t, session, "fontpeek_load_url", map[string]any{"url": "example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please enter a valid URL")

	_, err = callTool(t, session, "fontpeek_load_file", map[string]any{"path": "/nonexistent/page.html"})
	require.Error(t, err)
}

func TestMCP_LoadFileAndTheme(t *testing.T) {
	session := mcpSession(t, newFixture(t, ""))

	path := filepath.Join(t.TempDir(), "f.html")
	require.NoError(t, os.WriteFile(path, []byte(`<html><body><h2>Sub</h2></body></html>`), 0o644))

	_, err := callTool(t, session, "fontpeek_load_file", map[string]any{"path": path})
	require.NoError(t, err)

	text, err := callTool(t, session, "fontpeek_hover", map[string]any{"selector": "h2"})
	require.NoError(t, err)
	assert.Contains(t, text, `"visible":true`)

	text, err = callTool(t, session, "fontpeek_click", map[string]any{"selector": "h2"})
	require.NoError(t, err)
	assert.Contains(t, text, `"fontSize":"24px"`)

	text, err = callTool(t, session, "fontpeek_theme_toggle", map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, text, `"theme":"dark"`)

	text, err = callTool(t, session, "fontpeek_export_pdf", map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, text, "PDF export would be generated here")
}
