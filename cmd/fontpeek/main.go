// Command fontpeek inspects the computed font styling of page elements.
//
// Usage:
//
//	fontpeek serve --url https://example.com      # web UI on 127.0.0.1:8086
//	fontpeek serve --file page.html --watch       # reload on save
//	fontpeek inspect --url https://example.com --selector h1
//	fontpeek mcp                                  # MCP tools over stdio
//	fontpeek theme toggle
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/fontpeek/inspector"
	"github.com/hazyhaar/fontpeek/inspector/snapshot"
)

// Version is set at build time.
var Version = "dev"

var (
	configPath string
	logLevel   string
	logger     *slog.Logger
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if logger == nil {
			logger = newLogger(logLevel)
		}
		logger.Error("fontpeek: fatal", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fontpeek",
		Short:         "Inspect the computed font styling of page elements",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger(logLevel)
			slog.SetDefault(logger)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("FONTPEEK_CONFIG"), "path to fontpeek.yaml")
	root.PersistentFlags().StringVar(&logLevel, "log-level", env("LOG_LEVEL", "info"), "log level: debug, info, warn, error")

	root.AddCommand(serveCmd(), inspectCmd(), mcpCmd(), themeCmd())
	return root
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func loadConfig() (*inspector.Config, error) {
	cfg := inspector.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = inspector.LoadConfigFile(configPath); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func serveCmd() *cobra.Command {
	var (
		pageURL string
		file    string
		watch   bool
		addr    string
		headful bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start Chrome and serve the web UI and API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if headful {
				cfg.Browser.Headful = true
			}

			insp := inspector.New(cfg, logger)
			if err := insp.Start(ctx); err != nil {
				return err
			}
			defer insp.Stop()

			switch {
			case pageURL != "":
				if err := insp.LoadURL(ctx, pageURL); err != nil {
					logger.Warn("fontpeek: initial url", "url", pageURL, "error", err)
				}
			case file != "" && watch:
				if err := insp.WatchFile(ctx, file); err != nil {
					return err
				}
			case file != "":
				if err := insp.LoadPath(ctx, file); err != nil {
					logger.Warn("fontpeek: initial file", "path", file, "error", err)
				}
			}

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           insp.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				logger.Info("fontpeek: listening", "addr", cfg.Server.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				return fmt.Errorf("fontpeek: serve: %w", err)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("fontpeek: shutdown", "error", err)
			}
			logger.Info("fontpeek: server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "remote page to load at startup")
	cmd.Flags().StringVar(&file, "file", "", "local HTML file to load at startup")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload --file when it changes")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8086)")
	cmd.Flags().BoolVar(&headful, "headful", false, "show the Chrome window")
	cmd.MarkFlagsMutuallyExclusive("url", "file")
	return cmd
}

func inspectCmd() *cobra.Command {
	var (
		pageURL  string
		file     string
		live     bool
		selector string
		jsonDir  string
		copyCSS  bool
		markdown bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Load a document, click one element and print its font details",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			insp := inspector.New(cfg, logger)
			if err := insp.Start(ctx); err != nil {
				return err
			}
			defer insp.Stop()

			switch {
			case pageURL != "":
				err = insp.LoadURL(ctx, pageURL)
			case file != "":
				err = insp.LoadPath(ctx, file)
			default:
				err = insp.LoadLive(ctx)
			}
			if err != nil {
				return err
			}

			res, err := insp.Click(ctx, inspector.Target{Selector: selector})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if markdown {
				fmt.Fprintln(out, res.Panel.Markdown)
			} else {
				fmt.Fprintln(out, snapshot.Terminal(res.Snapshot))
			}

			if jsonDir != "" {
				path, err := insp.SaveJSON(ctx, jsonDir)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "saved", path)
			}
			if copyCSS {
				done, err := insp.CopyCSS(ctx)
				if err != nil {
					return err
				}
				if err := <-done; err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "CSS copied to clipboard")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "remote page to inspect")
	cmd.Flags().StringVar(&file, "file", "", "local HTML file to inspect")
	cmd.Flags().BoolVar(&live, "live", false, "inspect the primary page")
	cmd.Flags().StringVar(&selector, "selector", "", "CSS selector of the element to click")
	cmd.Flags().StringVar(&jsonDir, "json", "", "also write the JSON export into this directory")
	cmd.Flags().BoolVar(&copyCSS, "copy", false, "also copy the CSS to the clipboard")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print the markdown panel instead of the terminal panel")
	cmd.MarkFlagRequired("selector")
	cmd.MarkFlagsMutuallyExclusive("url", "file", "live")
	return cmd
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the fontpeek tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// stdout carries the protocol.
			sinks := cfg.Sinks[:0]
			for _, s := range cfg.Sinks {
				if s.Type != "stdout" {
					sinks = append(sinks, s)
				}
			}
			cfg.Sinks = sinks

			insp := inspector.New(cfg, logger)
			if err := insp.Start(ctx); err != nil {
				return err
			}
			defer insp.Stop()

			srv := mcp.NewServer(&mcp.Implementation{
				Name:    "fontpeek",
				Version: Version,
			}, nil)
			insp.RegisterMCP(srv)

			logger.Info("fontpeek: mcp on stdio")
			if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				return fmt.Errorf("fontpeek: mcp: %w", err)
			}
			return nil
		},
	}
}

func themeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "theme [toggle]",
		Short:     "Print or toggle the persisted theme",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			t, err := inspector.StoredTheme(cmd.Context(), cfg.Store.Path, len(args) == 1)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", t, t.Icon())
			return nil
		},
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
