package inspector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/fontpeek/inspector/internal/errkind"
)

// RegisterMCP registers the fontpeek tools on an MCP server.
func (i *Inspector) RegisterMCP(srv *mcp.Server) {
	registerTool(srv, &mcp.Tool{
		Name:        "fontpeek_load_live",
		Description: "Inspect the live primary page again.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, func(ctx context.Context, _ *struct{}) (any, error) {
		if err := i.LoadLive(ctx); err != nil {
			return nil, err
		}
		return map[string]any{"state": i.LoadState()}, nil
	})

	registerTool(srv, &mcp.Tool{
		Name:        "fontpeek_load_url",
		Description: "Fetch a remote page through the content proxy and make it the inspected document.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Absolute http(s) URL"},
		}, []string{"url"}),
	}, func(ctx context.Context, r *urlReq) (any, error) {
		if err := i.LoadURL(ctx, r.URL); err != nil {
			return nil, err
		}
		return map[string]any{"state": i.LoadState(), "url": r.URL}, nil
	})

	registerTool(srv, &mcp.Tool{
		Name:        "fontpeek_load_file",
		Description: "Load a local HTML file and make it the inspected document.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Path of the HTML file"},
		}, []string{"path"}),
	}, func(ctx context.Context, r *pathReq) (any, error) {
		if err := i.LoadPath(ctx, r.Path); err != nil {
			return nil, err
		}
		return map[string]any{"state": i.LoadState(), "path": r.Path}, nil
	})

	registerTool(srv, &mcp.Tool{
		Name:        "fontpeek_hover",
		Description: "Move the pointer over an element and return the highlight box.",
		InputSchema: inputSchema(targetProps(), nil),
	}, func(ctx context.Context, t *Target) (any, error) {
		return i.Hover(ctx, *t)
	})

	registerTool(srv, &mcp.Tool{
		Name:        "fontpeek_click",
		Description: "Click an element and return its font snapshot and the markdown panel.",
		InputSchema: inputSchema(targetProps(), nil),
	}, func(ctx context.Context, t *Target) (any, error) {
		res, err := i.Click(ctx, *t)
		if err != nil {
			return nil, err
		}
		return map[string]any{"snapshot": res.Snapshot, "panel": res.Panel.Markdown}, nil
	})

	registerTool(srv, &mcp.Tool{
		Name:        "fontpeek_snapshot",
		Description: "Return the latest font snapshot.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, func(context.Context, *struct{}) (any, error) {
		return i.Snapshot()
	})

	registerTool(srv, &mcp.Tool{
		Name:        "fontpeek_copy_css",
		Description: "Copy the CSS of the latest snapshot to the system clipboard.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, func(ctx context.Context, _ *struct{}) (any, error) {
		done, err := i.CopyCSS(ctx)
		if err != nil {
			return nil, err
		}
		select {
		case err := <-done:
			if err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		snap, _ := i.Snapshot()
		return map[string]string{"css": snap.DerivedCSSText}, nil
	})

	registerTool(srv, &mcp.Tool{
		Name:        "fontpeek_export_json",
		Description: "Write the latest snapshot as fontpeek-YYYY-MM-DD.json into a directory.",
		InputSchema: inputSchema(map[string]any{
			"dir": map[string]any{"type": "string", "description": "Target directory (default: configured export dir)"},
		}, nil),
	}, func(ctx context.Context, r *dirReq) (any, error) {
		path, err := i.SaveJSON(ctx, r.Dir)
		if err != nil {
			return nil, err
		}
		return map[string]string{"path": path}, nil
	})

	registerTool(srv, &mcp.Tool{
		Name:        "fontpeek_export_pdf",
		Description: "Request a PDF export of the latest snapshot.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, func(ctx context.Context, _ *struct{}) (any, error) {
		msg, err := i.ExportPDF(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]string{"message": msg}, nil
	})

	registerTool(srv, &mcp.Tool{
		Name:        "fontpeek_theme_toggle",
		Description: "Toggle between the light and dark theme.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, func(ctx context.Context, _ *struct{}) (any, error) {
		t, err := i.ToggleTheme(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]string{"theme": string(t), "icon": t.Icon()}, nil
	})

	registerTool(srv, &mcp.Tool{
		Name:        "fontpeek_history",
		Description: "List the most recent inspections, newest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max entries (default 20)"},
		}, nil),
	}, func(ctx context.Context, r *limitReq) (any, error) {
		entries, err := i.History(ctx, r.Limit)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []HistoryEntry{}
		}
		return entries, nil
	})
}

type urlReq struct {
	URL string `json:"url"`
}

type pathReq struct {
	Path string `json:"path"`
}

type dirReq struct {
	Dir string `json:"dir"`
}

type limitReq struct {
	Limit int `json:"limit"`
}

func targetProps() map[string]any {
	return map[string]any{
		"selector": map[string]any{"type": "string", "description": "CSS selector of the element"},
		"x":        map[string]any{"type": "number", "description": "Viewport x, used when selector is empty"},
		"y":        map[string]any{"type": "number", "description": "Viewport y, used when selector is empty"},
	}
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// registerTool decodes the arguments into a fresh *T, runs fn and returns
// its result as JSON text. Failures become tool errors.
func registerTool[T any](srv *mcp.Server, tool *mcp.Tool, fn func(ctx context.Context, req *T) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r T
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				var res mcp.CallToolResult
				res.SetError(fmt.Errorf("invalid arguments: %w", err))
				return &res, nil
			}
		}

		out, err := fn(ctx, &r)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(errkind.Message(err)))
			return &res, nil
		}

		data, err := json.Marshal(out)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}
